// Package query turns request query strings into filter, sort, projection and
// pagination settings, and renders them as SQL against a whitelist of fields.
package query

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"natours/internal/utils"
)

type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000

	// maxOffset bounds the OFFSET handed to the database.
	maxOffset = math.MaxInt32

	// VersionField is the internal revision counter; it is never projected.
	VersionField = "version"
)

var reservedKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var opKey = regexp.MustCompile(`^([A-Za-z0-9_]+)\[(gte|gt|lte|lt)\]$`)

// Condition compares a field against one or more raw values.
type Condition struct {
	Field  string
	Op     Op
	Values []string
}

type SortKey struct {
	Field string
	Desc  bool
}

// Spec is the per-request query specification.
type Spec struct {
	Filters []Condition
	Sort    []SortKey
	Fields  []string
	Exclude []string
	Page    int
	Limit   int

	explicitPage  bool
	explicitLimit bool
	pastEnd       bool
}

// Parse builds a Spec from query values. Malformed page or limit values fall
// back to the defaults.
func Parse(values url.Values) Spec {
	s := Spec{Page: DefaultPage, Limit: DefaultLimit}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := nonEmpty(values[key])
		if len(vals) == 0 {
			continue
		}
		if _, ok := reservedKeys[key]; ok {
			continue
		}
		if m := opKey.FindStringSubmatch(key); m != nil {
			// comparison operators take a single bound
			s.Filters = append(s.Filters, Condition{Field: m[1], Op: Op(m[2]), Values: vals[len(vals)-1:]})
			continue
		}
		if strings.ContainsAny(key, "[]") {
			continue
		}
		s.Filters = append(s.Filters, Condition{Field: key, Op: OpEq, Values: vals})
	}

	if raw := last(values["sort"]); raw != "" {
		for _, part := range utils.SplitList(raw) {
			if strings.HasPrefix(part, "-") {
				s.Sort = append(s.Sort, SortKey{Field: strings.TrimPrefix(part, "-"), Desc: true})
				continue
			}
			s.Sort = append(s.Sort, SortKey{Field: strings.TrimPrefix(part, "+")})
		}
	}

	if raw := last(values["fields"]); raw != "" {
		for _, part := range utils.SplitList(raw) {
			if strings.HasPrefix(part, "-") {
				s.Exclude = append(s.Exclude, strings.TrimPrefix(part, "-"))
				continue
			}
			if part == VersionField {
				continue
			}
			s.Fields = append(s.Fields, part)
		}
	}

	if n, ok := positive(last(values["page"])); ok {
		s.Page = n
		s.explicitPage = true
	}
	if n, ok := positive(last(values["limit"])); ok {
		s.Limit = min(n, MaxLimit)
		s.explicitLimit = true
	}
	s.pastEnd = s.Page-1 > maxOffset/s.Limit
	return s
}

// Skip is the number of records before the requested page. Pages whose
// offset cannot be represented skip past every record.
func (s Spec) Skip() int {
	if s.pastEnd {
		return maxOffset
	}
	return (s.Page - 1) * s.Limit
}

// OutOfRange reports whether the requested page lies beyond any offset the
// store can serve.
func (s Spec) OutOfRange() bool {
	return s.pastEnd
}

// ChecksPageExists reports whether the request asked for an explicit page and
// page size, in which case a page past the end is an error rather than empty.
func (s Spec) ChecksPageExists() bool {
	return s.explicitPage && s.explicitLimit
}

// WithFilter adds an equality filter unless the field is already filtered.
func (s Spec) WithFilter(field, value string) Spec {
	for _, c := range s.Filters {
		if c.Field == field {
			return s
		}
	}
	filters := make([]Condition, 0, len(s.Filters)+1)
	filters = append(filters, s.Filters...)
	s.Filters = append(filters, Condition{Field: field, Op: OpEq, Values: []string{value}})
	return s
}

// Unpaged drops pagination, used for counts.
func (s Spec) Unpaged() Spec {
	s.Page, s.Limit = DefaultPage, 0
	s.explicitPage, s.explicitLimit = false, false
	s.pastEnd = false
	return s
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func last(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[len(vals)-1])
}

func positive(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
