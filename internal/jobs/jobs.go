// Package jobs moves slow side effects, such as welcome email, onto a redis
// backed asynq queue.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"natours/internal/integrations/mailer"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const TaskWelcomeEmail = "email:welcome"

type WelcomePayload struct {
	To   string `json:"to"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func NewWelcomeEmailTask(p WelcomePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWelcomeEmail, payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}

// Service owns the queue client and the worker server.
type Service struct {
	client *asynq.Client
	server *asynq.Server
	mailer mailer.Mailer
	log    zerolog.Logger
}

func NewService(redisAddr string, m mailer.Mailer, log zerolog.Logger) *Service {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	return &Service{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"default": 1},
		}),
		mailer: m,
		log:    log,
	}
}

// EnqueueWelcome queues the signup greeting.
func (s *Service) EnqueueWelcome(ctx context.Context, to, name, url string) error {
	task, err := NewWelcomeEmailTask(WelcomePayload{To: to, Name: name, URL: url})
	if err != nil {
		return err
	}
	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskWelcomeEmail, err)
	}
	s.log.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("task enqueued")
	return nil
}

// Start runs the workers in the background.
func (s *Service) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, s.handleWelcomeEmail)
	s.log.Info().Msg("starting background job server")
	return s.server.Start(mux)
}

func (s *Service) Stop() {
	s.log.Info().Msg("stopping background job server")
	s.server.Shutdown()
	s.client.Close()
}

func (s *Service) handleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var p WelcomePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal welcome payload: %w", asynq.SkipRetry)
	}
	return SendWelcome(ctx, s.mailer, p, s.log)
}

// SendWelcome renders and delivers the welcome email.
func SendWelcome(ctx context.Context, m mailer.Mailer, p WelcomePayload, log zerolog.Logger) error {
	msg, err := mailer.Welcome(p.To, p.Name, p.URL)
	if err != nil {
		return err
	}
	if err := m.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("type", "welcome").Str("to", p.To).Msg("failed to send welcome email")
		return err
	}
	return nil
}

// Inline sends the welcome email on the calling goroutine. It is used when no
// redis address is configured.
type Inline struct {
	Mailer mailer.Mailer
	Log    zerolog.Logger
}

func (i Inline) EnqueueWelcome(ctx context.Context, to, name, url string) error {
	return SendWelcome(ctx, i.Mailer, WelcomePayload{To: to, Name: name, URL: url}, i.Log)
}
