package utils

import (
	"strings"
	"time"
)

const layoutDateTime = "2006-01-02 15:04:05"

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDateTime parses "YYYY-MM-DD HH:MM:SS" in UTC.
func ParseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDateTime, strings.TrimSpace(s), time.UTC)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in UTC, the layout
// MySQL accepts for DATETIME values inside JSON documents.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(layoutDateTime)
}
