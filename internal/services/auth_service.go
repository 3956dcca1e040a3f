package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/integrations/mailer"
	"natours/internal/logging"
	"natours/internal/validation"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordCost  = 12
	ResetTokenTTL = 10 * time.Minute

	msgNotLoggedIn       = "You are not logged in. Please login to get a token"
	msgUserGone          = "The user belonging to the token does no longer exist"
	msgPasswordChanged   = "User recently changed password. Please login."
	msgMissingCredential = "Please provide an email or password"
	msgBadCredential     = "Incorrect email or password"
)

// UserStore is the account persistence the auth flows need.
type UserStore interface {
	Insert(ctx context.Context, u models.User) (models.User, error)
	Update(ctx context.Context, id domain.ID, u models.User) (models.User, error)
	FindByID(ctx context.Context, id domain.ID, populate ...string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (models.User, error)
	SetResetToken(ctx context.Context, id domain.ID, hashed string, expires *time.Time) error
	SetPassword(ctx context.Context, id domain.ID, hash string, changedAt time.Time) error
	Deactivate(ctx context.Context, id domain.ID) error
}

// Welcomer queues the signup greeting.
type Welcomer interface {
	EnqueueWelcome(ctx context.Context, to, name, url string) error
}

// PasswordInput is the new-password pair shared by signup, reset and update.
type PasswordInput struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type SignupInput struct {
	Name  string `json:"name" validate:"required,max=80"`
	Email string `json:"email" validate:"required,email"`
	PasswordInput
}

// ProfileInput holds the fields a user may change about themselves.
type ProfileInput struct {
	Name  *string
	Email *string
	Photo string
}

type AuthService struct {
	Users    UserStore
	Tokens   *TokenManager
	Mailer   mailer.Mailer
	Welcomer Welcomer
	Log      zerolog.Logger
	Cost     int
	Now      func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) hash(password string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = PasswordCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Signup creates a regular account and returns it with a fresh token. The
// welcome email is best effort.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, accountURL string) (models.User, string, error) {
	if err := validation.Struct(in); err != nil {
		return models.User{}, "", err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, "", err
	}

	u := models.NewUser()
	u.Name = in.Name
	u.Email = in.Email
	u.Password = hash
	u, err = s.Users.Insert(ctx, u)
	if err != nil {
		return models.User{}, "", err
	}
	logging.Event(s.Log, "auth", "signup").Int64("user_id", int64(u.ID)).Msg("account created")

	if s.Welcomer != nil {
		if err := s.Welcomer.EnqueueWelcome(ctx, u.Email, u.Name, accountURL); err != nil {
			s.Log.Warn().Err(err).Int64("user_id", int64(u.ID)).Msg("welcome email not queued")
		}
	}

	token, err := s.Tokens.Sign(u.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, "", domain.ValidationError{Msg: msgMissingCredential}
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.User{}, "", domain.AuthenticationError{Msg: msgBadCredential}
		}
		return models.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return models.User{}, "", domain.AuthenticationError{Msg: msgBadCredential}
	}
	token, err := s.Tokens.Sign(u.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// Authenticate turns a raw token into the current identity.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (domain.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Identity{}, domain.AuthenticationError{Msg: msgNotLoggedIn}
	}
	claims, err := s.Tokens.Verify(raw)
	if err != nil {
		return domain.Identity{}, err
	}
	u, err := s.Users.FindByID(ctx, claims.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Identity{}, domain.AuthenticationError{Msg: msgUserGone, Err: err}
		}
		return domain.Identity{}, err
	}
	id := u.Identity()
	if id.ChangedPasswordAfter(claims.Issued()) {
		return domain.Identity{}, domain.AuthenticationError{Msg: msgPasswordChanged}
	}
	return id, nil
}

// ForgotPassword stores a hashed reset token and mails the plain one. The
// token is cleared again when the email cannot be sent.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NotFoundError{Resource: "user", Msg: "User does not exist"}
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(ResetTokenTTL)
	if err := s.Users.SetResetToken(ctx, u.ID, HashResetToken(token), &expires); err != nil {
		return err
	}

	msg, err := mailer.PasswordReset(u.Email, u.Name, resetURL(token))
	if err == nil {
		err = s.Mailer.Send(ctx, msg)
	}
	if err != nil {
		if clearErr := s.Users.SetResetToken(ctx, u.ID, "", nil); clearErr != nil {
			s.Log.Error().Err(clearErr).Int64("user_id", int64(u.ID)).Msg("reset token rollback failed")
		}
		return domain.IntegrationError{Service: "mail", Msg: "There was an error sending the reset token email", Err: err}
	}
	logging.Event(s.Log, "auth", "forgot_password").Int64("user_id", int64(u.ID)).Msg("reset token sent")
	return nil
}

// ResetPassword consumes a reset token and logs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, token string, in PasswordInput) (models.User, string, error) {
	u, err := s.Users.FindByResetToken(ctx, HashResetToken(token), s.now())
	if err != nil {
		if domain.IsNotFound(err) {
			return models.User{}, "", domain.ValidationError{Msg: "Token is invalid or expired"}
		}
		return models.User{}, "", err
	}
	return s.setPassword(ctx, u, in)
}

// UpdatePassword changes the password of a logged in user after checking the
// current one.
func (s *AuthService) UpdatePassword(ctx context.Context, id domain.ID, current string, in PasswordInput) (models.User, string, error) {
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)) != nil {
		return models.User{}, "", domain.ValidationError{Msg: "Current password is wrong"}
	}
	return s.setPassword(ctx, u, in)
}

func (s *AuthService) setPassword(ctx context.Context, u models.User, in PasswordInput) (models.User, string, error) {
	if err := validation.Struct(in); err != nil {
		return models.User{}, "", err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, "", err
	}
	// one second back so the token signed below is not older than the change
	changed := s.now().Add(-time.Second)
	if err := s.Users.SetPassword(ctx, u.ID, hash, changed); err != nil {
		return models.User{}, "", err
	}
	u.Password = hash
	u.PasswordChangedAt = &changed
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil

	token, err := s.Tokens.Sign(u.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// UpdateProfile applies name, email and photo changes.
func (s *AuthService) UpdateProfile(ctx context.Context, id domain.ID, in ProfileInput) (models.User, error) {
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Photo != "" {
		u.Photo = in.Photo
	}
	return s.Users.Update(ctx, id, u)
}

// Deactivate hides the account from every read.
func (s *AuthService) Deactivate(ctx context.Context, id domain.ID) error {
	return s.Users.Deactivate(ctx, id)
}

// HashResetToken is the form stored in the database.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
