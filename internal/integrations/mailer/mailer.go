// Package mailer sends transactional email through Resend, or to the log
// when no API key is configured.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"natours/internal/domain"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type templateData struct {
	FirstName string
	URL       string
}

// Welcome builds the signup greeting pointing at the account page.
func Welcome(to, name, url string) (Message, error) {
	return render(to, "Welcome to the Natours family!", "welcome.html", templateData{firstName(name), url},
		fmt.Sprintf("Welcome to Natours, %s! Upload your user photo at %s", firstName(name), url))
}

// PasswordReset builds the reset email carrying the plain token URL.
func PasswordReset(to, name, url string) (Message, error) {
	text := fmt.Sprintf("Forgot your password? Submit a PATCH request with your password and password confirmation to %s\n"+
		"If you did not forget your password, please ignore this email!", url)
	return render(to, "Your password reset token (valid for 10 min)", "password_reset.html",
		templateData{firstName(name), url}, text)
}

func render(to, subject, name string, data templateData, text string) (Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, Text: text, HTML: body.String()}, nil
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

// ResendMailer delivers through the Resend API behind a circuit breaker.
type ResendMailer struct {
	client  *resend.Client
	from    string
	breaker *gobreaker.CircuitBreaker[*resend.SendEmailResponse]
	log     zerolog.Logger
}

func NewResendMailer(apiKey, from string, log zerolog.Logger) *ResendMailer {
	m := &ResendMailer{client: resend.NewClient(apiKey), from: from, log: log}
	m.breaker = gobreaker.NewCircuitBreaker[*resend.SendEmailResponse](gobreaker.Settings{
		Name:    "resend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return m
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := m.breaker.Execute(func() (*resend.SendEmailResponse, error) {
		return m.client.Emails.Send(&resend.SendEmailRequest{
			From:    m.from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			Text:    msg.Text,
			Html:    msg.HTML,
		})
	})
	if err != nil {
		return domain.IntegrationError{Service: "resend", Msg: "email delivery failed", Err: err}
	}
	m.log.Info().Str("module", "mailer").Str("to", msg.To).Str("email_id", res.Id).Msg("email sent")
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Log zerolog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Log.Info().
		Str("module", "mailer").
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("email not sent, no provider configured")
	return nil
}

// New picks Resend when an API key is present.
func New(apiKey, from string, log zerolog.Logger) Mailer {
	if strings.TrimSpace(apiKey) == "" {
		return LogMailer{Log: log}
	}
	return NewResendMailer(apiKey, from, log)
}
