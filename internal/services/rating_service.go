package services

import (
	"context"
	"math"

	"natours/internal/domain"
	"natours/internal/domain/models"

	"github.com/rs/zerolog"
)

type RatingAggregator interface {
	RatingSummary(ctx context.Context, tourID domain.ID) (models.RatingSummary, error)
}

type RatingWriter interface {
	UpdateRatings(ctx context.Context, tourID domain.ID, s models.RatingSummary) error
}

// RatingService keeps a tour's ratingsQuantity and ratingsAverage in line
// with its reviews. It runs after the review write commits, not inside it.
type RatingService struct {
	Reviews RatingAggregator
	Tours   RatingWriter
	Log     zerolog.Logger
}

// Recalculate recomputes the summary of one tour. Without reviews the tour
// goes back to 0 ratings and the default average.
func (s RatingService) Recalculate(ctx context.Context, tourID domain.ID) error {
	if tourID <= 0 {
		return nil
	}
	sum, err := s.Reviews.RatingSummary(ctx, tourID)
	if err != nil {
		return err
	}
	if sum.Quantity == 0 {
		sum.Average = models.DefaultRatingsAverage
	} else {
		sum.Average = math.Round(sum.Average*10) / 10
	}
	if err := s.Tours.UpdateRatings(ctx, tourID, sum); err != nil {
		return err
	}
	s.Log.Debug().
		Int64("tour_id", int64(tourID)).
		Int("ratings_quantity", sum.Quantity).
		Float64("ratings_average", sum.Average).
		Msg("tour ratings recalculated")
	return nil
}

func (s RatingService) AfterCreate(ctx context.Context, r models.Review) error {
	return s.Recalculate(ctx, r.Tour.ID)
}

// AfterUpdate also refreshes the previous tour when the review moved.
func (s RatingService) AfterUpdate(ctx context.Context, before, after models.Review) error {
	if err := s.Recalculate(ctx, after.Tour.ID); err != nil {
		return err
	}
	if before.Tour.ID != after.Tour.ID {
		return s.Recalculate(ctx, before.Tour.ID)
	}
	return nil
}

func (s RatingService) AfterDelete(ctx context.Context, r models.Review) error {
	return s.Recalculate(ctx, r.Tour.ID)
}
