package repositories

import (
	"context"
	"time"

	"natours/internal/db"
	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/query"
	"natours/internal/utils"

	"github.com/rs/zerolog"
)

const PopulateUser = "user"

var reviewSelect = []string{"id", "review", "rating", "tour_id", "user_id", "version", "created_at"}

// ReviewDescriptor maps reviews onto the reviews table. The author is always
// populated with name and photo.
var ReviewDescriptor = &Descriptor[models.Review]{
	Name:    "review",
	Plural:  "reviews",
	Table:   "reviews",
	Select:  reviewSelect,
	Columns: []string{"review", "rating", "tour_id", "user_id"},
	Fields: query.Fields{
		"id":        {Column: "id", Kind: query.Integer},
		"rating":    {Column: "rating", Kind: query.Number},
		"tour":      {Column: "tour_id", Kind: query.Integer},
		"user":      {Column: "user_id", Kind: query.Integer},
		"createdAt": {Column: "created_at", Kind: query.Time},
	},
	DefaultSort: "created_at DESC",
	Scan:        scanReview,
	Values: func(r models.Review) ([]any, error) {
		return []any{r.Review, r.Rating, int64(r.Tour.ID), int64(r.User.ID)}, nil
	},
	ID: func(r models.Review) domain.ID { return r.ID },
	Stamp: func(r *models.Review, id domain.ID, at time.Time) {
		r.ID = id
		r.CreatedAt = at
	},
	Prepare: func(r *models.Review) {
		r.Review = utils.TrimOrEmpty(r.Review)
	},
	Populate: map[string]Populator[models.Review]{
		PopulateUser: populateReviewUsers,
	},
	Always: []string{PopulateUser},
}

func scanReview(s db.Scanner) (models.Review, error) {
	var r models.Review
	err := s.Scan(&r.ID, &r.Review, &r.Rating, &r.Tour.ID, &r.User.ID, &r.Version, &r.CreatedAt)
	return r, err
}

func populateReviewUsers(ctx context.Context, q db.Queryer, items []*models.Review) error {
	ids := make([]domain.ID, 0, len(items))
	for _, r := range items {
		ids = append(ids, r.User.ID)
	}
	refs, err := loadUserRefs(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, r := range items {
		if ref, ok := refs[r.User.ID]; ok {
			r.User = models.UserRef{ID: ref.ID, Name: ref.Name, Photo: ref.Photo}
		}
	}
	return nil
}

// ReviewRepository adds the rating aggregate to the generic collection.
type ReviewRepository struct {
	*Collection[models.Review]
}

func NewReviewRepository(q db.Queryer, log zerolog.Logger) *ReviewRepository {
	return &ReviewRepository{Collection: NewCollection(q, ReviewDescriptor, log)}
}

// RatingSummary counts and averages the reviews of one tour.
func (r *ReviewRepository) RatingSummary(ctx context.Context, tourID domain.ID) (models.RatingSummary, error) {
	var s models.RatingSummary
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE tour_id = ?",
		int64(tourID)).Scan(&s.Quantity, &s.Average)
	if err != nil {
		return s, classify(r.Desc.Name, err)
	}
	return s, nil
}
