package domain

import (
	"strconv"
	"strings"
	"time"
)

// ID is used across domain entities.
type ID int64

// ParseID parses a path or query value into an ID.
func ParseID(raw string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, ValidationError{Field: "id", Msg: "Invalid id: " + raw, Err: err}
	}
	return ID(n), nil
}

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller, re-read from the store on every request.
type Identity struct {
	ID                ID         `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Photo             string     `json:"photo"`
	Role              Role       `json:"role"`
	PasswordChangedAt *time.Time `json:"-"`
}

// ChangedPasswordAfter reports whether the password changed after a token issued at iat.
func (i Identity) ChangedPasswordAfter(iat time.Time) bool {
	if i.PasswordChangedAt == nil {
		return false
	}
	return i.PasswordChangedAt.Unix() > iat.Unix()
}

// HasRole is a set-membership check.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
