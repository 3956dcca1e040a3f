package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"natours/internal/db"
	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/query"
	"natours/internal/utils"

	"github.com/rs/zerolog"
)

// UserDescriptor maps accounts onto the users table. Deactivated accounts are
// invisible to every read.
var UserDescriptor = &Descriptor[models.User]{
	Name:   "user",
	Plural: "users",
	Table:  "users",
	Select: []string{
		"id", "name", "email", "photo", "role", "password", "password_changed_at",
		"password_reset_token", "password_reset_expires", "active", "version", "created_at",
	},
	Columns: []string{
		"name", "email", "photo", "role", "password", "password_changed_at",
		"password_reset_token", "password_reset_expires", "active",
	},
	Fields: query.Fields{
		"id":        {Column: "id", Kind: query.Integer},
		"name":      {Column: "name"},
		"email":     {Column: "email"},
		"role":      {Column: "role"},
		"createdAt": {Column: "created_at", Kind: query.Time},
	},
	DefaultSort: "created_at DESC",
	Defaults:    []string{"active = 1"},
	New:         models.NewUser,
	Scan:        scanUser,
	Values: func(u models.User) ([]any, error) {
		return []any{
			u.Name, u.Email, u.Photo, string(u.Role), u.Password, db.NullTime(u.PasswordChangedAt),
			db.NullIfEmpty(u.PasswordResetToken), db.NullTime(u.PasswordResetExpires), u.Active,
		}, nil
	},
	ID: func(u models.User) domain.ID { return u.ID },
	Stamp: func(u *models.User, id domain.ID, at time.Time) {
		u.ID = id
		u.CreatedAt = at
	},
	Prepare: func(u *models.User) {
		u.Name = utils.NormalizeSpace(u.Name)
		u.Email = utils.NormalizeEmail(u.Email)
		if u.Photo == "" {
			u.Photo = models.DefaultPhoto
		}
		if u.Role == "" {
			u.Role = domain.RoleUser
		}
	},
}

func scanUser(s db.Scanner) (models.User, error) {
	var u models.User
	var role string
	var changed, expires sql.NullTime
	var token sql.NullString
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &role, &u.Password, &changed,
		&token, &expires, &u.Active, &u.Version, &u.CreatedAt)
	if err != nil {
		return u, err
	}
	u.Role = domain.Role(role)
	u.PasswordChangedAt = db.TimePtr(changed)
	u.PasswordResetExpires = db.TimePtr(expires)
	u.PasswordResetToken = token.String
	return u, nil
}

// loadUserRefs resolves active users by id for populators.
func loadUserRefs(ctx context.Context, q db.Queryer, ids []domain.ID) (map[domain.ID]models.UserRef, error) {
	refs := make(map[domain.ID]models.UserRef, len(ids))
	seen := make(map[domain.ID]bool, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		args = append(args, int64(id))
	}
	if len(args) == 0 {
		return refs, nil
	}

	stmt := fmt.Sprintf("SELECT id, name, email, photo, role FROM users WHERE active = 1 AND id IN (%s)",
		query.Placeholders(len(args)))
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ref models.UserRef
		var role string
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Email, &ref.Photo, &role); err != nil {
			return nil, err
		}
		ref.Role = domain.Role(role)
		refs[ref.ID] = ref
	}
	return refs, rows.Err()
}

// UserRepository adds credential lookups and updates to the generic collection.
type UserRepository struct {
	*Collection[models.User]
}

func NewUserRepository(q db.Queryer, log zerolog.Logger) *UserRepository {
	return &UserRepository{Collection: NewCollection(q, UserDescriptor, log)}
}

// FindByEmail loads an active account by its normalized address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.FindOne(ctx, "email = ?", []any{utils.NormalizeEmail(email)})
}

// FindByResetToken loads the account holding an unexpired hashed reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, hashed string, now time.Time) (models.User, error) {
	return r.FindOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", []any{hashed, now.UTC()})
}

// SetResetToken stores or, with an empty token, clears the reset token.
func (r *UserRepository) SetResetToken(ctx context.Context, id domain.ID, hashed string, expires *time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token = ?, password_reset_expires = ? WHERE id = ?",
		db.NullIfEmpty(hashed), db.NullTime(expires), int64(id))
	return classify(r.Desc.Name, err)
}

// SetPassword stores a new hash and clears any pending reset token.
func (r *UserRepository) SetPassword(ctx context.Context, id domain.ID, hash string, changedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET password = ?, password_changed_at = ?, password_reset_token = NULL,
		    password_reset_expires = NULL, version = version + 1
		WHERE id = ?`,
		hash, changedAt.UTC(), int64(id))
	return classify(r.Desc.Name, err)
}

// Deactivate soft deletes an account.
func (r *UserRepository) Deactivate(ctx context.Context, id domain.ID) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET active = 0 WHERE id = ? AND active = 1", int64(id))
	if err != nil {
		return classify(r.Desc.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: r.Desc.Name}
	}
	return nil
}

// FindIdentity loads the caller behind a verified token.
func (r *UserRepository) FindIdentity(ctx context.Context, id domain.ID) (domain.Identity, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Identity{}, err
	}
	return u.Identity(), nil
}
