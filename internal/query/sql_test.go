package query

import (
	"encoding/json"
	"testing"

	"natours/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tourFields = Fields{
	"name":           {Column: "name", Kind: String},
	"price":          {Column: "price", Kind: Number},
	"duration":       {Column: "duration", Kind: Integer},
	"ratingsAverage": {Column: "ratings_average", Kind: Number},
	"createdAt":      {Column: "created_at", Kind: Time},
}

func TestWhereOperators(t *testing.T) {
	s := Parse(mustValues(t, "duration[gte]=5&price[lt]=1500&unknown=1"))

	where, args, err := tourFields.Where(s.Filters, "secret_tour = 0")
	require.NoError(t, err)
	assert.Equal(t, "WHERE secret_tour = 0 AND duration >= ? AND price < ?", where)
	assert.Equal(t, []any{int64(5), float64(1500)}, args)
}

func TestWhereRepeatedEqualityBecomesIn(t *testing.T) {
	s := Parse(mustValues(t, "duration=5&duration=9"))
	where, args, err := tourFields.Where(s.Filters)
	require.NoError(t, err)
	assert.Equal(t, "WHERE duration IN (?, ?)", where)
	assert.Equal(t, []any{int64(5), int64(9)}, args)
}

func TestWhereRejectsBadValue(t *testing.T) {
	s := Parse(mustValues(t, "price[gte]=cheap"))
	_, _, err := tourFields.Where(s.Filters)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid price: cheap")
}

func TestWhereEmpty(t *testing.T) {
	where, args, err := tourFields.Where(nil)
	require.NoError(t, err)
	assert.Equal(t, "", where)
	assert.Empty(t, args)
}

func TestOrderByPriority(t *testing.T) {
	s := Parse(mustValues(t, "sort=price,-ratingsAverage,bogus"))
	assert.Equal(t, "ORDER BY price ASC, ratings_average DESC", tourFields.OrderBy(s.Sort, "created_at DESC"))
	assert.Equal(t, "ORDER BY created_at DESC", tourFields.OrderBy(nil, "created_at DESC"))
}

func TestPaginate(t *testing.T) {
	s := Parse(mustValues(t, "page=3&limit=5"))
	clause, args := Paginate(s)
	assert.Equal(t, "LIMIT ? OFFSET ?", clause)
	assert.Equal(t, []any{5, 10}, args)

	clause, args = Paginate(s.Unpaged())
	assert.Equal(t, "", clause)
	assert.Nil(t, args)
}

type projected struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Version int    `json:"version"`
}

func TestProjectSelectsFields(t *testing.T) {
	rows := []projected{{ID: 1, Name: "Sea Explorer", Price: 497, Version: 3}}

	out, err := Project(rows, Parse(mustValues(t, "fields=name")))
	require.NoError(t, err)
	require.Len(t, out, 1)
	obj := out[0].(map[string]json.RawMessage)
	assert.Len(t, obj, 2)
	assert.Contains(t, obj, "id")
	assert.Contains(t, obj, "name")

	out, err = Project(rows, Parse(mustValues(t, "fields=-price")))
	require.NoError(t, err)
	obj = out[0].(map[string]json.RawMessage)
	assert.NotContains(t, obj, "price")
	assert.NotContains(t, obj, "version")
	assert.Contains(t, obj, "name")
}
