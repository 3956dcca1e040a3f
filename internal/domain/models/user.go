package models

import (
	"time"

	"natours/internal/domain"
)

const DefaultPhoto = "default.jpg"

// User is an account. Credential fields never leave the server.
type User struct {
	ID                   domain.ID   `json:"id"`
	Name                 string      `json:"name" validate:"required,max=80"`
	Email                string      `json:"email" validate:"required,email"`
	Photo                string      `json:"photo"`
	Role                 domain.Role `json:"role" validate:"required,oneof=user guide lead-guide admin"`
	Password             string      `json:"-"`
	PasswordChangedAt    *time.Time  `json:"-"`
	PasswordResetToken   string      `json:"-"`
	PasswordResetExpires *time.Time  `json:"-"`
	Active               bool        `json:"-"`
	CreatedAt            time.Time   `json:"-"`
	Version              int         `json:"-"`
}

func NewUser() User {
	return User{Photo: DefaultPhoto, Role: domain.RoleUser, Active: true}
}

func (u User) Identity() domain.Identity {
	return domain.Identity{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Photo:             u.Photo,
		Role:              u.Role,
		PasswordChangedAt: u.PasswordChangedAt,
	}
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}
