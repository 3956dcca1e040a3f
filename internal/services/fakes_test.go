package services

import (
	"context"
	"errors"
	"time"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/integrations/mailer"
)

type fakeUsers struct {
	byID   map[domain.ID]models.User
	nextID domain.ID
	resets int
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{byID: map[domain.ID]models.User{}, nextID: 100}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Insert(_ context.Context, u models.User) (models.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return models.User{}, domain.ConflictError{Msg: "Duplicate field value: " + u.Email + ". Please use another value!"}
		}
	}
	f.nextID++
	u.ID = f.nextID
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, id domain.ID, u models.User) (models.User, error) {
	if _, ok := f.byID[id]; !ok {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id domain.ID, _ ...string) (models.User, error) {
	u, ok := f.byID[id]
	if !ok || !u.Active {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range f.byID {
		if u.Email == email && u.Active {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "user"}
}

func (f *fakeUsers) FindByResetToken(_ context.Context, hashed string, now time.Time) (models.User, error) {
	for _, u := range f.byID {
		if u.PasswordResetToken == hashed && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "user"}
}

func (f *fakeUsers) SetResetToken(_ context.Context, id domain.ID, hashed string, expires *time.Time) error {
	u := f.byID[id]
	u.PasswordResetToken = hashed
	u.PasswordResetExpires = expires
	f.byID[id] = u
	f.resets++
	return nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id domain.ID, hash string, changedAt time.Time) error {
	u := f.byID[id]
	u.Password = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Deactivate(_ context.Context, id domain.ID) error {
	u, ok := f.byID[id]
	if !ok || !u.Active {
		return domain.NotFoundError{Resource: "user"}
	}
	u.Active = false
	f.byID[id] = u
	return nil
}

type fakeMailer struct {
	sent []mailer.Message
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.fail {
		return errors.New("mail transport unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeWelcomer struct {
	calls []string
}

func (w *fakeWelcomer) EnqueueWelcome(_ context.Context, to, _, _ string) error {
	w.calls = append(w.calls, to)
	return nil
}
