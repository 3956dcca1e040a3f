package repositories

import (
	"context"
	"strings"
	"time"

	"natours/internal/db"
	"natours/internal/domain"
	"natours/internal/query"
)

// Populator eager-loads related records onto a page of results.
type Populator[T any] func(ctx context.Context, q db.Queryer, items []*T) error

// Descriptor tells a Collection how one resource maps onto its table. It is
// built once at startup and never mutated.
type Descriptor[T any] struct {
	Name   string
	Plural string
	Table  string

	// Select lists the columns read by Scan, in scan order.
	Select []string
	// Columns lists the writable columns, aligned with Values.
	Columns []string
	// Fields whitelists what callers may filter and sort on.
	Fields      query.Fields
	DefaultSort string
	// Defaults are trusted predicates applied to every read and delete.
	Defaults []string

	New    func() T
	Scan   func(db.Scanner) (T, error)
	Values func(T) ([]any, error)
	ID     func(T) domain.ID
	// Stamp records the generated id and creation time after an insert.
	Stamp func(*T, domain.ID, time.Time)
	// Prepare runs before validation on every insert and update.
	Prepare func(*T)

	Populate map[string]Populator[T]
	// Always names populators applied on every read.
	Always []string
}

func (d *Descriptor[T]) selectList() string {
	return strings.Join(d.Select, ", ")
}

func (d *Descriptor[T]) newValue() T {
	if d.New != nil {
		return d.New()
	}
	var zero T
	return zero
}
