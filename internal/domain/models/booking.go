package models

import (
	"time"

	"natours/internal/domain"
)

// Booking records a paid tour purchase.
type Booking struct {
	ID        domain.ID `json:"id"`
	Tour      TourRef   `json:"tour" validate:"required"`
	User      UserRef   `json:"user" validate:"required"`
	Price     float64   `json:"price" validate:"required,gt=0"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int       `json:"-"`
}

func NewBooking() Booking {
	return Booking{Paid: true}
}
