package services

import (
	"context"
	"strconv"
	"strings"

	"natours/internal/domain"
	"natours/internal/domain/models"
)

const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1

	metresToMiles = 0.000621371
	metresToKm    = 0.001

	msgLatLng = "Please provide a latitude and longitude in the format lat,lng"
)

type TourQueries interface {
	Stats(ctx context.Context) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error)
	Within(ctx context.Context, lng, lat, radians float64) ([]models.Tour, error)
	Distances(ctx context.Context, lng, lat, multiplier float64) ([]models.TourDistance, error)
}

// TourService holds the tour reports and geo lookups.
type TourService struct {
	Tours TourQueries
}

// ParseLatLng reads "lat,lng".
func ParseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, domain.ValidationError{Msg: msgLatLng}
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, domain.ValidationError{Msg: msgLatLng, Err: err}
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, domain.ValidationError{Msg: msgLatLng, Err: err}
	}
	return lat, lng, nil
}

// Within finds tours starting inside distance (miles for "mi", else km) of latlng.
func (s TourService) Within(ctx context.Context, distance, latlng, unit string) ([]models.Tour, error) {
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil || d < 0 {
		return nil, domain.ValidationError{Msg: "Invalid distance: " + distance, Err: err}
	}
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	radius := d / earthRadiusKm
	if unit == "mi" {
		radius = d / earthRadiusMiles
	}
	return s.Tours.Within(ctx, lng, lat, radius)
}

// Distances lists every tour's distance from latlng, nearest first.
func (s TourService) Distances(ctx context.Context, latlng, unit string) ([]models.TourDistance, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	multiplier := metresToKm
	if unit == "mi" {
		multiplier = metresToMiles
	}
	return s.Tours.Distances(ctx, lng, lat, multiplier)
}

func (s TourService) Stats(ctx context.Context) ([]models.TourStats, error) {
	return s.Tours.Stats(ctx)
}

// MonthlyPlan reports tour starts per month of the given year.
func (s TourService) MonthlyPlan(ctx context.Context, year string) ([]models.MonthlyPlan, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1970 || y > 9999 {
		return nil, domain.ValidationError{Msg: "Invalid year: " + year, Err: err}
	}
	return s.Tours.MonthlyPlan(ctx, y)
}
