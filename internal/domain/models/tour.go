package models

import (
	"encoding/json"
	"time"

	"natours/internal/domain"
)

const (
	DefaultRatingsAverage = 4.5
	PointType             = "Point"
)

// Location is a GeoJSON point. Coordinates are [lng, lat].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

// LngLat returns the point coordinates, ok is false when they are incomplete.
func (l Location) LngLat() (lng, lat float64, ok bool) {
	if len(l.Coordinates) < 2 {
		return 0, 0, false
	}
	return l.Coordinates[0], l.Coordinates[1], true
}

type Tour struct {
	ID              domain.ID   `json:"id"`
	Name            string      `json:"name" validate:"required,min=10,max=40"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int         `json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      string      `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int         `json:"ratingsQuantity" validate:"gte=0"`
	Price           float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty" validate:"omitempty,gte=0,ltfield=Price"`
	Summary         string      `json:"summary" validate:"required"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover" validate:"required"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	SecretTour      bool        `json:"secretTour"`
	StartLocation   *Location   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations"`
	Guides          []UserRef   `json:"guides"`
	Reviews         []Review    `json:"reviews,omitempty"`
	CreatedAt       time.Time   `json:"-"`
	Version         int         `json:"-"`

	// HiddenGuides keeps guide ids that population left out (inactive
	// accounts) so writing the tour back does not drop them.
	HiddenGuides []domain.ID `json:"-"`
}

// NewTour returns a tour carrying the column defaults.
func NewTour() Tour {
	return Tour{RatingsAverage: DefaultRatingsAverage}
}

// DurationWeeks is derived, never stored.
func (t Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

func (t Tour) Ref() TourRef {
	return TourRef{ID: t.ID, Name: t.Name, Slug: t.Slug, Price: t.Price}
}

func (t Tour) MarshalJSON() ([]byte, error) {
	type plain Tour
	return json.Marshal(struct {
		plain
		DurationWeeks float64 `json:"durationWeeks"`
	}{plain(t), t.DurationWeeks()})
}

// UnmarshalJSON overlays a document onto the tour. A document that sets
// guides replaces the whole list, hidden ones included.
func (t *Tour) UnmarshalJSON(data []byte) error {
	type plain Tour
	if err := json.Unmarshal(data, (*plain)(t)); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if _, ok := keys["guides"]; ok {
		t.HiddenGuides = nil
	}
	return nil
}

// TourStats is one difficulty bucket of the tour statistics report.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlan is the number of tour starts in one month of a year.
type MonthlyPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// TourDistance is a tour name with its distance from a reference point.
type TourDistance struct {
	ID       domain.ID `json:"id"`
	Name     string    `json:"name"`
	Distance float64   `json:"distance"`
}
