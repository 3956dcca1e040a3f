package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"natours/internal/domain"
)

// Kind controls how raw query values are converted before binding.
type Kind int

const (
	String Kind = iota
	Number
	Integer
	Bool
	Time
)

// Field maps an exposed JSON name onto a SQL column.
type Field struct {
	Column string
	Kind   Kind
}

// Fields is the whitelist of filterable and sortable fields of one resource.
// Anything outside it never reaches SQL.
type Fields map[string]Field

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpGte: ">=",
	OpGt:  ">",
	OpLte: "<=",
	OpLt:  "<",
}

// Where renders conditions joined with AND. Trusted fragments such as default
// filters are prepended as given. Unknown fields are skipped.
func (f Fields) Where(conds []Condition, trusted ...string) (string, []any, error) {
	clauses := make([]string, 0, len(conds)+len(trusted))
	args := make([]any, 0, len(conds))
	for _, t := range trusted {
		if strings.TrimSpace(t) != "" {
			clauses = append(clauses, t)
		}
	}

	for _, c := range conds {
		field, ok := f[c.Field]
		if !ok || len(c.Values) == 0 {
			continue
		}
		op, ok := sqlOps[c.Op]
		if !ok {
			continue
		}
		vals := make([]any, 0, len(c.Values))
		for _, raw := range c.Values {
			v, err := convert(field.Kind, raw)
			if err != nil {
				return "", nil, domain.ValidationError{
					Field: c.Field,
					Msg:   fmt.Sprintf("Invalid %s: %s", c.Field, raw),
					Err:   err,
				}
			}
			vals = append(vals, v)
		}
		if c.Op == OpEq && len(vals) > 1 {
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", field.Column, Placeholders(len(vals))))
			args = append(args, vals...)
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", field.Column, op))
		args = append(args, vals[0])
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

// OrderBy renders sort keys in priority order. fallback is used when no key
// survives the whitelist.
func (f Fields) OrderBy(keys []SortKey, fallback string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		field, ok := f[k.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, field.Column+" "+dir)
	}
	if len(parts) == 0 {
		if fallback == "" {
			return ""
		}
		return "ORDER BY " + fallback
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// Paginate renders LIMIT/OFFSET for the spec; a zero limit means unpaged.
func Paginate(s Spec) (string, []any) {
	if s.Limit <= 0 {
		return "", nil
	}
	return "LIMIT ? OFFSET ?", []any{s.Limit, s.Skip()}
}

// Placeholders returns n comma separated bind markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func convert(kind Kind, raw string) (any, error) {
	switch kind {
	case Number:
		return strconv.ParseFloat(raw, 64)
	case Integer:
		return strconv.ParseInt(raw, 10, 64)
	case Bool:
		return strconv.ParseBool(raw)
	case Time:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unrecognised time %q", raw)
	default:
		return raw, nil
	}
}
