package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"natours/internal/db"
	"natours/internal/domain"
	"natours/internal/query"
	"natours/internal/validation"

	"github.com/rs/zerolog"
)

// Collection is the generic store for one resource, driven by its Descriptor.
type Collection[T any] struct {
	DB   db.Queryer
	Desc *Descriptor[T]
	Log  zerolog.Logger
	Now  func() time.Time
}

func NewCollection[T any](q db.Queryer, desc *Descriptor[T], log zerolog.Logger) *Collection[T] {
	return &Collection[T]{DB: q, Desc: desc, Log: log, Now: time.Now}
}

// Name is the singular resource name used in responses and errors.
func (c *Collection[T]) Name() string { return c.Desc.Name }

// Plural is the collection name used in list responses.
func (c *Collection[T]) Plural() string { return c.Desc.Plural }

// New returns a value carrying the resource defaults.
func (c *Collection[T]) New() T { return c.Desc.newValue() }

// Find runs a query specification. Default predicates always apply.
func (c *Collection[T]) Find(ctx context.Context, s query.Spec) ([]T, error) {
	where, args, err := c.Desc.Fields.Where(s.Filters, c.Desc.Defaults...)
	if err != nil {
		return nil, err
	}
	page, pageArgs := query.Paginate(s)
	stmt := join("SELECT", c.Desc.selectList(), "FROM", c.Desc.Table, where,
		c.Desc.Fields.OrderBy(s.Sort, c.Desc.DefaultSort), page)
	return c.query(ctx, stmt, append(args, pageArgs...)...)
}

// Count returns how many records match the spec's filters.
func (c *Collection[T]) Count(ctx context.Context, s query.Spec) (int, error) {
	where, args, err := c.Desc.Fields.Where(s.Filters, c.Desc.Defaults...)
	if err != nil {
		return 0, err
	}
	var n int
	stmt := join("SELECT COUNT(*) FROM", c.Desc.Table, where)
	if err := c.DB.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, classify(c.Desc.Name, err)
	}
	return n, nil
}

// FindByID loads one record, applying the named populators on top of the
// always-on ones.
func (c *Collection[T]) FindByID(ctx context.Context, id domain.ID, populate ...string) (T, error) {
	return c.FindOne(ctx, "id = ?", []any{int64(id)}, populate...)
}

// FindOne loads the first record matching a trusted predicate.
func (c *Collection[T]) FindOne(ctx context.Context, pred string, args []any, populate ...string) (T, error) {
	var zero T
	where := "WHERE " + strings.Join(append(append([]string{}, c.Desc.Defaults...), pred), " AND ")
	stmt := join("SELECT", c.Desc.selectList(), "FROM", c.Desc.Table, where, "LIMIT 1")
	items, err := c.query(ctx, stmt, args...)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, domain.NotFoundError{Resource: c.Desc.Name}
	}
	if len(populate) > 0 {
		if err := c.populate(ctx, []*T{&items[0]}, populate); err != nil {
			return zero, err
		}
	}
	return items[0], nil
}

// FindWhere loads every record matching a trusted predicate.
func (c *Collection[T]) FindWhere(ctx context.Context, pred string, args ...any) ([]T, error) {
	where := "WHERE " + strings.Join(append(append([]string{}, c.Desc.Defaults...), pred), " AND ")
	stmt := join("SELECT", c.Desc.selectList(), "FROM", c.Desc.Table, where, "ORDER BY", c.Desc.DefaultSort)
	return c.query(ctx, stmt, args...)
}

// Insert validates and stores v, returning it with its generated id.
func (c *Collection[T]) Insert(ctx context.Context, v T) (T, error) {
	var zero T
	if c.Desc.Prepare != nil {
		c.Desc.Prepare(&v)
	}
	if err := validation.Struct(v); err != nil {
		return zero, err
	}
	vals, err := c.Desc.Values(v)
	if err != nil {
		return zero, err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.Desc.Table, strings.Join(c.Desc.Columns, ", "), query.Placeholders(len(c.Desc.Columns)))
	res, err := c.DB.ExecContext(ctx, stmt, vals...)
	if err != nil {
		return zero, classify(c.Desc.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return zero, classify(c.Desc.Name, err)
	}
	if c.Desc.Stamp != nil {
		c.Desc.Stamp(&v, domain.ID(id), c.Now().UTC())
	}
	return v, nil
}

// Update validates v and replaces the stored record with the given id.
func (c *Collection[T]) Update(ctx context.Context, id domain.ID, v T) (T, error) {
	var zero T
	if c.Desc.Prepare != nil {
		c.Desc.Prepare(&v)
	}
	if err := validation.Struct(v); err != nil {
		return zero, err
	}
	vals, err := c.Desc.Values(v)
	if err != nil {
		return zero, err
	}
	sets := make([]string, 0, len(c.Desc.Columns)+1)
	for _, col := range c.Desc.Columns {
		sets = append(sets, col+" = ?")
	}
	sets = append(sets, "version = version + 1")
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", c.Desc.Table, strings.Join(sets, ", "))
	res, err := c.DB.ExecContext(ctx, stmt, append(vals, int64(id))...)
	if err != nil {
		return zero, classify(c.Desc.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return zero, domain.NotFoundError{Resource: c.Desc.Name}
	}
	return v, nil
}

// Delete removes the record; records hidden by default predicates count as missing.
func (c *Collection[T]) Delete(ctx context.Context, id domain.ID) error {
	preds := append([]string{"id = ?"}, c.Desc.Defaults...)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", c.Desc.Table, strings.Join(preds, " AND "))
	res, err := c.DB.ExecContext(ctx, stmt, int64(id))
	if err != nil {
		return classify(c.Desc.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(c.Desc.Name, err)
	}
	if n == 0 {
		return domain.NotFoundError{Resource: c.Desc.Name}
	}
	return nil
}

func (c *Collection[T]) query(ctx context.Context, stmt string, args ...any) ([]T, error) {
	start := c.Now()
	rows, err := c.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, classify(c.Desc.Name, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := c.Desc.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.Desc.Name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(c.Desc.Name, err)
	}

	if len(c.Desc.Always) > 0 && len(items) > 0 {
		ptrs := make([]*T, len(items))
		for i := range items {
			ptrs[i] = &items[i]
		}
		if err := c.populate(ctx, ptrs, c.Desc.Always); err != nil {
			return nil, err
		}
	}

	c.Log.Debug().
		Str("resource", c.Desc.Plural).
		Int("rows", len(items)).
		Dur("took", c.Now().Sub(start)).
		Msg("query")
	return items, nil
}

func (c *Collection[T]) populate(ctx context.Context, items []*T, names []string) error {
	for _, name := range names {
		p, ok := c.Desc.Populate[name]
		if !ok {
			return fmt.Errorf("%s: unknown populate path %q", c.Desc.Name, name)
		}
		if err := p(ctx, c.DB, items); err != nil {
			return fmt.Errorf("populate %s.%s: %w", c.Desc.Name, name, err)
		}
	}
	return nil
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
