// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. format is "json" or "console".
func New(level, format string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(w, level)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Event starts an info event tagged with module and action, so log lines can
// be filtered per feature.
func Event(l zerolog.Logger, module, action string) *zerolog.Event {
	return l.Info().Str("module", module).Str("action", action)
}
