package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"natours/internal/domain"
	"natours/internal/domain/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newAuth(t *testing.T, users *fakeUsers) (*AuthService, *clock, *fakeMailer) {
	t.Helper()
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tokens := &TokenManager{Secret: []byte(testSecret), TTL: 90 * 24 * time.Hour, Now: c.Now}
	m := &fakeMailer{}
	return &AuthService{
		Users:    users,
		Tokens:   tokens,
		Mailer:   m,
		Welcomer: &fakeWelcomer{},
		Log:      zerolog.Nop(),
		Cost:     bcrypt.MinCost,
		Now:      c.Now,
	}, c, m
}

func existingUser(t *testing.T, id domain.ID, email, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.NewUser()
	u.ID = id
	u.Name = "Laura Wilson"
	u.Email = email
	u.Password = string(hash)
	return u
}

func TestSignupCreatesUserAndQueuesWelcome(t *testing.T) {
	users := newFakeUsers()
	svc, _, _ := newAuth(t, users)

	in := SignupInput{Name: "Ann Lee", Email: "ann@example.io", PasswordInput: PasswordInput{"pass1234", "pass1234"}}
	u, token, err := svc.Signup(context.Background(), in, "http://127.0.0.1:8080/me")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "pass1234", u.Password)

	claims, err := svc.Tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.ID)
	assert.Equal(t, []string{"ann@example.io"}, svc.Welcomer.(*fakeWelcomer).calls)
}

func TestSignupRejectsMismatchedPasswords(t *testing.T) {
	svc, _, _ := newAuth(t, newFakeUsers())

	in := SignupInput{Name: "Ann Lee", Email: "ann@example.io", PasswordInput: PasswordInput{"pass1234", "pass12345"}}
	_, _, err := svc.Signup(context.Background(), in, "")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "Passwords are not the same")
}

func TestLoginMessages(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, _, _ := newAuth(t, users)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "", "x")
	assert.Equal(t, domain.ValidationError{Msg: "Please provide an email or password"}, err)

	_, _, err = svc.Login(ctx, "laura@example.io", "wrong-pass")
	assert.Equal(t, domain.AuthenticationError{Msg: "Incorrect email or password"}, err)

	_, _, err = svc.Login(ctx, "nobody@example.io", "test1234")
	assert.Equal(t, domain.AuthenticationError{Msg: "Incorrect email or password"}, err)

	u, token, err := svc.Login(ctx, "laura@example.io", "test1234")
	require.NoError(t, err)
	assert.Equal(t, domain.ID(1), u.ID)
	assert.NotEmpty(t, token)
}

func TestAuthenticateRejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, c, _ := newAuth(t, users)
	ctx := context.Background()

	_, oldToken, err := svc.Login(ctx, "laura@example.io", "test1234")
	require.NoError(t, err)
	id, err := svc.Authenticate(ctx, oldToken)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(1), id.ID)

	c.t = c.t.Add(time.Hour)
	_, newToken, err := svc.UpdatePassword(ctx, 1, "test1234", PasswordInput{"newpass123", "newpass123"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, oldToken)
	assert.Equal(t, domain.AuthenticationError{Msg: "User recently changed password. Please login."}, err)

	_, err = svc.Authenticate(ctx, newToken)
	assert.NoError(t, err)
}

func TestAuthenticateFailures(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, c, _ := newAuth(t, users)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	assert.EqualError(t, err, "You are not logged in. Please login to get a token")

	_, err = svc.Authenticate(ctx, "not.a.token")
	assert.EqualError(t, err, "Invalid token. Please log in again!")

	ghost, err := svc.Tokens.Sign(42)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assert.EqualError(t, err, "The user belonging to the token does no longer exist")

	token, err := svc.Tokens.Sign(1)
	require.NoError(t, err)
	c.t = c.t.Add(91 * 24 * time.Hour)
	_, err = svc.Authenticate(ctx, token)
	assert.EqualError(t, err, "Your token has expired! Please log in again.")
}

func TestUpdatePasswordChecksCurrent(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, _, _ := newAuth(t, users)

	_, _, err := svc.UpdatePassword(context.Background(), 1, "nope", PasswordInput{"newpass123", "newpass123"})
	assert.Equal(t, domain.ValidationError{Msg: "Current password is wrong"}, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, c, m := newAuth(t, users)
	ctx := context.Background()

	base := "http://127.0.0.1:8080/api/v1/users/resetPassword/"
	require.NoError(t, svc.ForgotPassword(ctx, "laura@example.io", func(tok string) string { return base + tok }))
	require.Len(t, m.sent, 1)

	stored := users.byID[1]
	require.NotEmpty(t, stored.PasswordResetToken)
	assert.True(t, stored.PasswordResetExpires.Equal(c.t.Add(10*time.Minute)))

	i := strings.Index(m.sent[0].Text, base)
	require.GreaterOrEqual(t, i, 0)
	plain := strings.Fields(m.sent[0].Text[i+len(base):])[0]
	assert.Equal(t, stored.PasswordResetToken, HashResetToken(plain))

	u, token, err := svc.ResetPassword(ctx, plain, PasswordInput{"brandnew1", "brandnew1"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, u.PasswordResetToken)

	_, _, err = svc.ResetPassword(ctx, plain, PasswordInput{"brandnew2", "brandnew2"})
	assert.Equal(t, domain.ValidationError{Msg: "Token is invalid or expired"}, err)

	_, _, err = svc.Login(ctx, "laura@example.io", "brandnew1")
	assert.NoError(t, err)
}

func TestResetTokenExpires(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, c, m := newAuth(t, users)
	ctx := context.Background()

	var plain string
	require.NoError(t, svc.ForgotPassword(ctx, "laura@example.io", func(tok string) string { plain = tok; return tok }))
	require.Len(t, m.sent, 1)

	c.t = c.t.Add(11 * time.Minute)
	_, _, err := svc.ResetPassword(ctx, plain, PasswordInput{"brandnew1", "brandnew1"})
	assert.Equal(t, domain.ValidationError{Msg: "Token is invalid or expired"}, err)
}

func TestForgotPasswordRollsBackWhenMailFails(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, _, m := newAuth(t, users)
	m.fail = true

	err := svc.ForgotPassword(context.Background(), "laura@example.io", func(tok string) string { return tok })
	require.Error(t, err)
	assert.True(t, domain.IsIntegration(err))
	assert.Equal(t, 2, users.resets)
	assert.Empty(t, users.byID[1].PasswordResetToken)
	assert.Nil(t, users.byID[1].PasswordResetExpires)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newAuth(t, newFakeUsers())
	err := svc.ForgotPassword(context.Background(), "ghost@example.io", func(tok string) string { return tok })
	assert.True(t, domain.IsNotFound(err))
	assert.EqualError(t, err, "User does not exist")
}

func TestUpdateProfileAndDeactivate(t *testing.T) {
	users := newFakeUsers(existingUser(t, 1, "laura@example.io", "test1234"))
	svc, _, _ := newAuth(t, users)
	ctx := context.Background()

	name := "Laura W."
	u, err := svc.UpdateProfile(ctx, 1, ProfileInput{Name: &name, Photo: "user-1-1.jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "Laura W.", u.Name)
	assert.Equal(t, "laura@example.io", u.Email)
	assert.Equal(t, "user-1-1.jpeg", u.Photo)

	require.NoError(t, svc.Deactivate(ctx, 1))
	_, err = users.FindByID(ctx, 1)
	assert.True(t, domain.IsNotFound(err))
}
