package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"natours/internal/db"
	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/query"
	"natours/internal/utils"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

const (
	PopulateGuides  = "guides"
	PopulateReviews = "reviews"
)

// TourDescriptor maps tours onto the tours table. Secret tours are invisible
// to every read.
var TourDescriptor = &Descriptor[models.Tour]{
	Name:   "tour",
	Plural: "tours",
	Table:  "tours",
	Select: []string{
		"id", "name", "slug", "duration", "max_group_size", "difficulty",
		"ratings_average", "ratings_quantity", "price", "price_discount",
		"summary", "description", "image_cover", "images", "start_dates",
		"secret_tour", "start_location", "locations", "guides", "version", "created_at",
	},
	Columns: []string{
		"name", "slug", "duration", "max_group_size", "difficulty",
		"ratings_average", "ratings_quantity", "price", "price_discount",
		"summary", "description", "image_cover", "images", "start_dates",
		"secret_tour", "start_location", "start_lng", "start_lat", "locations", "guides",
	},
	Fields: query.Fields{
		"id":              {Column: "id", Kind: query.Integer},
		"name":            {Column: "name"},
		"slug":            {Column: "slug"},
		"duration":        {Column: "duration", Kind: query.Integer},
		"maxGroupSize":    {Column: "max_group_size", Kind: query.Integer},
		"difficulty":      {Column: "difficulty"},
		"ratingsAverage":  {Column: "ratings_average", Kind: query.Number},
		"ratingsQuantity": {Column: "ratings_quantity", Kind: query.Integer},
		"price":           {Column: "price", Kind: query.Number},
		"priceDiscount":   {Column: "price_discount", Kind: query.Number},
		"createdAt":       {Column: "created_at", Kind: query.Time},
	},
	DefaultSort: "created_at DESC",
	Defaults:    []string{"secret_tour = 0"},
	New:         models.NewTour,
	Scan:        scanTour,
	Values:      tourValues,
	ID:          func(t models.Tour) domain.ID { return t.ID },
	Stamp: func(t *models.Tour, id domain.ID, at time.Time) {
		t.ID = id
		t.CreatedAt = at
	},
	Prepare: prepareTour,
	Populate: map[string]Populator[models.Tour]{
		PopulateGuides:  populateGuides,
		PopulateReviews: populateTourReviews,
	},
	Always: []string{PopulateGuides},
}

func prepareTour(t *models.Tour) {
	t.Name = utils.NormalizeSpace(t.Name)
	t.Slug = slug.Make(t.Name)
	t.RatingsAverage = math.Round(t.RatingsAverage*10) / 10
	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = models.PointType
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = models.PointType
		}
	}
}

func scanTour(s db.Scanner) (models.Tour, error) {
	var t models.Tour
	var discount sql.NullFloat64
	var description sql.NullString
	var images, startDates, start, locs, guides []byte
	err := s.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
		&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &discount,
		&t.Summary, &description, &t.ImageCover, &images, &startDates,
		&t.SecretTour, &start, &locs, &guides, &t.Version, &t.CreatedAt,
	)
	if err != nil {
		return t, err
	}
	if discount.Valid {
		d := discount.Float64
		t.PriceDiscount = &d
	}
	t.Description = description.String

	if err := db.ScanJSON(images, &t.Images); err != nil {
		return t, err
	}
	var dates []string
	if err := db.ScanJSON(startDates, &dates); err != nil {
		return t, err
	}
	for _, raw := range dates {
		d, err := utils.ParseDateTime(raw)
		if err != nil {
			return t, fmt.Errorf("start date %q: %w", raw, err)
		}
		t.StartDates = append(t.StartDates, d)
	}
	if len(start) > 0 && string(start) != "null" {
		var loc models.Location
		if err := db.ScanJSON(start, &loc); err != nil {
			return t, err
		}
		t.StartLocation = &loc
	}
	if err := db.ScanJSON(locs, &t.Locations); err != nil {
		return t, err
	}
	var guideIDs []domain.ID
	if err := db.ScanJSON(guides, &guideIDs); err != nil {
		return t, err
	}
	for _, id := range guideIDs {
		t.Guides = append(t.Guides, models.UserRef{ID: id})
	}
	return t, nil
}

func tourValues(t models.Tour) ([]any, error) {
	images, err := db.JSONValue(t.Images)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(t.StartDates))
	for _, d := range t.StartDates {
		dates = append(dates, utils.FormatDateTime(d))
	}
	startDates, err := db.JSONValue(dates)
	if err != nil {
		return nil, err
	}
	locations, err := db.JSONValue(t.Locations)
	if err != nil {
		return nil, err
	}
	guideIDs := make([]domain.ID, 0, len(t.Guides)+len(t.HiddenGuides))
	seen := make(map[domain.ID]bool, len(t.Guides))
	for _, g := range t.Guides {
		guideIDs = append(guideIDs, g.ID)
		seen[g.ID] = true
	}
	for _, id := range t.HiddenGuides {
		if !seen[id] {
			guideIDs = append(guideIDs, id)
		}
	}
	guides, err := db.JSONValue(guideIDs)
	if err != nil {
		return nil, err
	}

	var start, lng, lat any
	if t.StartLocation != nil {
		if start, err = db.JSONValue(t.StartLocation); err != nil {
			return nil, err
		}
		if x, y, ok := t.StartLocation.LngLat(); ok {
			lng, lat = x, y
		}
	}
	var discount any
	if t.PriceDiscount != nil {
		discount = *t.PriceDiscount
	}

	return []any{
		t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty,
		t.RatingsAverage, t.RatingsQuantity, t.Price, discount,
		t.Summary, db.NullIfEmpty(t.Description), t.ImageCover, images, startDates,
		t.SecretTour, start, lng, lat, locations, guides,
	}, nil
}

func populateGuides(ctx context.Context, q db.Queryer, items []*models.Tour) error {
	var ids []domain.ID
	for _, t := range items {
		for _, g := range t.Guides {
			ids = append(ids, g.ID)
		}
	}
	refs, err := loadUserRefs(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, t := range items {
		guides := make([]models.UserRef, 0, len(t.Guides))
		var hidden []domain.ID
		for _, g := range t.Guides {
			// inactive or deleted guides drop out of the listing
			if ref, ok := refs[g.ID]; ok {
				guides = append(guides, ref)
			} else {
				hidden = append(hidden, g.ID)
			}
		}
		t.Guides = guides
		t.HiddenGuides = hidden
	}
	return nil
}

func populateTourReviews(ctx context.Context, q db.Queryer, items []*models.Tour) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[domain.ID]*models.Tour, len(items))
	args := make([]any, 0, len(items))
	for _, t := range items {
		byID[t.ID] = t
		t.Reviews = []models.Review{}
		args = append(args, int64(t.ID))
	}
	stmt := fmt.Sprintf("SELECT %s FROM reviews WHERE tour_id IN (%s) ORDER BY created_at DESC",
		strings.Join(reviewSelect, ", "), query.Placeholders(len(args)))
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return err
		}
		reviews = append(reviews, &r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := populateReviewUsers(ctx, q, reviews); err != nil {
		return err
	}
	for _, r := range reviews {
		if t, ok := byID[r.Tour.ID]; ok {
			t.Reviews = append(t.Reviews, *r)
		}
	}
	return nil
}

// TourRepository adds the tour aggregates and lookups to the generic collection.
type TourRepository struct {
	*Collection[models.Tour]
}

func NewTourRepository(q db.Queryer, log zerolog.Logger) *TourRepository {
	return &TourRepository{Collection: NewCollection(q, TourDescriptor, log)}
}

// FindBySlug loads a visible tour with its reviews.
func (r *TourRepository) FindBySlug(ctx context.Context, s string) (models.Tour, error) {
	return r.FindOne(ctx, "slug = ?", []any{s}, PopulateReviews)
}

// FindByIDs loads the visible tours among ids.
func (r *TourRepository) FindByIDs(ctx context.Context, ids []domain.ID) ([]models.Tour, error) {
	if len(ids) == 0 {
		return []models.Tour{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return r.FindWhere(ctx, fmt.Sprintf("id IN (%s)", query.Placeholders(len(ids))), args...)
}

// Within returns tours whose start location lies within radians of the point.
func (r *TourRepository) Within(ctx context.Context, lng, lat, radians float64) ([]models.Tour, error) {
	return r.FindWhere(ctx,
		"start_lng IS NOT NULL AND ST_Distance_Sphere(POINT(start_lng, start_lat), POINT(?, ?), 1) <= ?",
		lng, lat, radians)
}

// Distances lists every located tour with its distance from the point, nearest
// first. multiplier converts metres into the caller's unit.
func (r *TourRepository) Distances(ctx context.Context, lng, lat, multiplier float64) ([]models.TourDistance, error) {
	stmt := `
		SELECT id, name, ST_Distance_Sphere(POINT(start_lng, start_lat), POINT(?, ?), 6378100) * ? AS distance
		FROM tours
		WHERE ` + strings.Join(r.Desc.Defaults, " AND ") + ` AND start_lng IS NOT NULL
		ORDER BY distance ASC`
	rows, err := r.DB.QueryContext(ctx, stmt, lng, lat, multiplier)
	if err != nil {
		return nil, classify(r.Desc.Name, err)
	}
	defer rows.Close()

	out := []models.TourDistance{}
	for rows.Next() {
		var d models.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stats groups well rated tours by difficulty, cheapest group first.
func (r *TourRepository) Stats(ctx context.Context) ([]models.TourStats, error) {
	stmt := `
		SELECT UPPER(difficulty) AS difficulty,
		       COUNT(*) AS num_tours,
		       COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
		       AVG(ratings_average) AS avg_rating,
		       AVG(price) AS avg_price,
		       MIN(price) AS min_price,
		       MAX(price) AS max_price
		FROM tours
		WHERE ` + strings.Join(r.Desc.Defaults, " AND ") + ` AND ratings_average >= 4.5
		GROUP BY UPPER(difficulty)
		ORDER BY avg_price ASC`
	rows, err := r.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, classify(r.Desc.Name, err)
	}
	defer rows.Close()

	out := []models.TourStats{}
	for rows.Next() {
		var s models.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings, &s.AvgRating,
			&s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthlyPlan counts tour starts per month of year, busiest month first.
func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	stmt := `
		SELECT MONTH(sd.start_date) AS month,
		       COUNT(*) AS num_tour_starts,
		       JSON_ARRAYAGG(t.name) AS tours
		FROM tours t,
		     JSON_TABLE(t.start_dates, '$[*]' COLUMNS (start_date DATETIME PATH '$')) AS sd
		WHERE t.secret_tour = 0 AND sd.start_date >= ? AND sd.start_date < ?
		GROUP BY MONTH(sd.start_date)
		ORDER BY num_tour_starts DESC, month ASC`
	rows, err := r.DB.QueryContext(ctx, stmt, utils.FormatDateTime(from), utils.FormatDateTime(to))
	if err != nil {
		return nil, classify(r.Desc.Name, err)
	}
	defer rows.Close()

	out := []models.MonthlyPlan{}
	for rows.Next() {
		var (
			p     models.MonthlyPlan
			names []byte
		)
		if err := rows.Scan(&p.Month, &p.NumTourStarts, &names); err != nil {
			return nil, err
		}
		if err := db.ScanJSON(names, &p.Tours); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateRatings stores a recomputed rating summary. Hidden tours are included.
func (r *TourRepository) UpdateRatings(ctx context.Context, id domain.ID, s models.RatingSummary) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE tours SET ratings_quantity = ?, ratings_average = ? WHERE id = ?",
		s.Quantity, s.Average, int64(id))
	if err != nil {
		return classify(r.Desc.Name, err)
	}
	return nil
}
