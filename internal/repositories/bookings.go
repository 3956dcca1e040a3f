package repositories

import (
	"context"
	"fmt"
	"time"

	"natours/internal/db"
	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/query"

	"github.com/rs/zerolog"
)

const PopulateTour = "tour"

// BookingDescriptor maps purchases onto the bookings table. Buyer and tour
// are always populated.
var BookingDescriptor = &Descriptor[models.Booking]{
	Name:    "booking",
	Plural:  "bookings",
	Table:   "bookings",
	Select:  []string{"id", "tour_id", "user_id", "price", "paid", "version", "created_at"},
	Columns: []string{"tour_id", "user_id", "price", "paid"},
	Fields: query.Fields{
		"id":        {Column: "id", Kind: query.Integer},
		"tour":      {Column: "tour_id", Kind: query.Integer},
		"user":      {Column: "user_id", Kind: query.Integer},
		"price":     {Column: "price", Kind: query.Number},
		"paid":      {Column: "paid", Kind: query.Bool},
		"createdAt": {Column: "created_at", Kind: query.Time},
	},
	DefaultSort: "created_at DESC",
	New:         models.NewBooking,
	Scan: func(s db.Scanner) (models.Booking, error) {
		var b models.Booking
		err := s.Scan(&b.ID, &b.Tour.ID, &b.User.ID, &b.Price, &b.Paid, &b.Version, &b.CreatedAt)
		return b, err
	},
	Values: func(b models.Booking) ([]any, error) {
		return []any{int64(b.Tour.ID), int64(b.User.ID), b.Price, b.Paid}, nil
	},
	ID: func(b models.Booking) domain.ID { return b.ID },
	Stamp: func(b *models.Booking, id domain.ID, at time.Time) {
		b.ID = id
		b.CreatedAt = at
	},
	Populate: map[string]Populator[models.Booking]{
		PopulateUser: populateBookingUsers,
		PopulateTour: populateBookingTours,
	},
	Always: []string{PopulateUser, PopulateTour},
}

func populateBookingUsers(ctx context.Context, q db.Queryer, items []*models.Booking) error {
	ids := make([]domain.ID, 0, len(items))
	for _, b := range items {
		ids = append(ids, b.User.ID)
	}
	refs, err := loadUserRefs(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, b := range items {
		if ref, ok := refs[b.User.ID]; ok {
			b.User = ref
		}
	}
	return nil
}

// populateBookingTours resolves tour name, slug and price. Secret tours are
// included since the purchase already happened.
func populateBookingTours(ctx context.Context, q db.Queryer, items []*models.Booking) error {
	seen := map[domain.ID]bool{}
	args := []any{}
	for _, b := range items {
		if b.Tour.ID > 0 && !seen[b.Tour.ID] {
			seen[b.Tour.ID] = true
			args = append(args, int64(b.Tour.ID))
		}
	}
	if len(args) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("SELECT id, name, slug, price FROM tours WHERE id IN (%s)", query.Placeholders(len(args)))
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	refs := map[domain.ID]models.TourRef{}
	for rows.Next() {
		var ref models.TourRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Slug, &ref.Price); err != nil {
			return err
		}
		refs[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, b := range items {
		if ref, ok := refs[b.Tour.ID]; ok {
			b.Tour = ref
		}
	}
	return nil
}

// BookingRepository adds purchase lookups to the generic collection.
type BookingRepository struct {
	*Collection[models.Booking]
}

func NewBookingRepository(q db.Queryer, log zerolog.Logger) *BookingRepository {
	return &BookingRepository{Collection: NewCollection(q, BookingDescriptor, log)}
}

// Exists reports whether the user has booked the tour.
func (r *BookingRepository) Exists(ctx context.Context, userID, tourID domain.ID) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE user_id = ? AND tour_id = ?",
		int64(userID), int64(tourID)).Scan(&n)
	if err != nil {
		return false, classify(r.Desc.Name, err)
	}
	return n > 0, nil
}

// TourIDsForUser lists the distinct tours a user has booked.
func (r *BookingRepository) TourIDsForUser(ctx context.Context, userID domain.ID) ([]domain.ID, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT DISTINCT tour_id FROM bookings WHERE user_id = ? ORDER BY tour_id",
		int64(userID))
	if err != nil {
		return nil, classify(r.Desc.Name, err)
	}
	defer rows.Close()

	ids := []domain.ID{}
	for rows.Next() {
		var id domain.ID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
