package repositories

import (
	"context"
	"testing"
	"time"

	"natours/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRow(rows *sqlmock.Rows, id int64, changed any) *sqlmock.Rows {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Leo Gillespie", "leo@example.io", "user-1.jpg", "lead-guide", "$2a$12$hash",
		changed, nil, nil, int64(1), 0, created)
}

func TestUserFindByEmailNormalizes(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn, zerolog.Nop())
	changed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE active = 1 AND email = \? LIMIT 1`).
		WithArgs("leo@example.io").
		WillReturnRows(userRow(sqlmock.NewRows(UserDescriptor.Select), 1, changed))

	u, err := repo.FindByEmail(context.Background(), "  LEO@example.io")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLeadGuide, u.Role)
	require.NotNil(t, u.PasswordChangedAt)
	assert.True(t, u.PasswordChangedAt.Equal(changed))
	assert.Empty(t, u.PasswordResetToken)
	assert.True(t, u.Active)
}

func TestUserFindByResetTokenChecksExpiry(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn, zerolog.Nop())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE active = 1 AND password_reset_token = \? AND password_reset_expires > \? LIMIT 1`).
		WithArgs("abc123", now).
		WillReturnRows(sqlmock.NewRows(UserDescriptor.Select))

	_, err := repo.FindByResetToken(context.Background(), "abc123", now)
	assert.True(t, domain.IsNotFound(err))
}

func TestUserSetResetTokenClears(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn, zerolog.Nop())

	mock.ExpectExec(`UPDATE users SET password_reset_token = \?, password_reset_expires = \? WHERE id = \?`).
		WithArgs(nil, nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetResetToken(context.Background(), 3, "", nil))
}

func TestUserDeactivate(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn, zerolog.Nop())

	mock.ExpectExec(`UPDATE users SET active = 0 WHERE id = \? AND active = 1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET active = 0`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Deactivate(context.Background(), 3))
	assert.True(t, domain.IsNotFound(repo.Deactivate(context.Background(), 3)))
}

func TestReviewRatingSummary(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewReviewRepository(conn, zerolog.Nop())

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(rating\), 0\) FROM reviews WHERE tour_id = \?`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n", "avg"}).AddRow(3, 4.333333))

	s, err := repo.RatingSummary(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Quantity)
	assert.InDelta(t, 4.33, s.Average, 0.01)
}

func TestBookingFindPopulatesBuyerAndTour(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewBookingRepository(conn, zerolog.Nop())
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM bookings WHERE id = \? LIMIT 1`).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(BookingDescriptor.Select).AddRow(6, 2, 5, 497.0, int64(1), 0, created))
	mock.ExpectQuery(`FROM users WHERE active = 1 AND id IN \(\?\)`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "photo", "role"}).
			AddRow(5, "Sophie Hale", "sophie@example.io", "user-5.jpg", "user"))
	mock.ExpectQuery(`SELECT id, name, slug, price FROM tours WHERE id IN \(\?\)`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "price"}).
			AddRow(2, "The Sea Explorer", "the-sea-explorer", 497.0))

	b, err := repo.FindByID(context.Background(), 6)
	require.NoError(t, err)
	assert.True(t, b.Paid)
	assert.Equal(t, "Sophie Hale", b.User.Name)
	assert.Equal(t, "the-sea-explorer", b.Tour.Slug)
}

func TestBookingExistsAndTourIDs(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewBookingRepository(conn, zerolog.Nop())

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE user_id = \? AND tour_id = \?`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`SELECT DISTINCT tour_id FROM bookings WHERE user_id = \?`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id"}).AddRow(2).AddRow(4))

	ok, err := repo.Exists(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := repo.TourIDsForUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.ID{2, 4}, ids)
}
