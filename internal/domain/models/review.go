package models

import (
	"time"

	"natours/internal/domain"
)

type Review struct {
	ID        domain.ID `json:"id"`
	Review    string    `json:"review" validate:"required"`
	Rating    float64   `json:"rating" validate:"required,gte=1,lte=5"`
	CreatedAt time.Time `json:"createdAt"`
	Tour      TourRef   `json:"tour" validate:"required"`
	User      UserRef   `json:"user" validate:"required"`
	Version   int       `json:"-"`
}

// RatingSummary is the aggregate a tour stores about its reviews.
type RatingSummary struct {
	Quantity int
	Average  float64
}
