package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"natours/internal/domain"
	"natours/internal/http/middleware"
	"natours/internal/query"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type widget struct {
	ID      domain.ID `json:"id"`
	Name    string    `json:"name"`
	Price   float64   `json:"price"`
	Tags    []string  `json:"tags"`
	Version int       `json:"-"`
}

type memStore struct {
	items map[domain.ID]widget
	next  domain.ID
}

func newMemStore(ws ...widget) *memStore {
	m := &memStore{items: map[domain.ID]widget{}}
	for _, w := range ws {
		m.items[w.ID] = w
		if w.ID > m.next {
			m.next = w.ID
		}
	}
	return m
}

func (m *memStore) Name() string   { return "widget" }
func (m *memStore) Plural() string { return "widgets" }
func (m *memStore) New() widget    { return widget{Tags: []string{}} }

func (m *memStore) sorted() []widget {
	out := make([]widget, 0, len(m.items))
	for _, w := range m.items {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) Find(_ context.Context, s query.Spec) ([]widget, error) {
	all := m.sorted()
	skip := s.Skip()
	if skip >= len(all) {
		return []widget{}, nil
	}
	end := skip + s.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (m *memStore) Count(context.Context, query.Spec) (int, error) { return len(m.items), nil }

func (m *memStore) FindByID(_ context.Context, id domain.ID, _ ...string) (widget, error) {
	w, ok := m.items[id]
	if !ok {
		return widget{}, domain.NotFoundError{Resource: "widget"}
	}
	w.Tags = append([]string(nil), w.Tags...)
	return w, nil
}

func (m *memStore) Insert(_ context.Context, w widget) (widget, error) {
	if strings.TrimSpace(w.Name) == "" {
		return widget{}, domain.ValidationError{Msg: "Invalid input data. name is required"}
	}
	m.next++
	w.ID = m.next
	m.items[w.ID] = w
	return w, nil
}

func (m *memStore) Update(_ context.Context, id domain.ID, w widget) (widget, error) {
	old, ok := m.items[id]
	if !ok {
		return widget{}, domain.NotFoundError{Resource: "widget"}
	}
	w.ID = id
	w.Version = old.Version + 1
	m.items[id] = w
	return w, nil
}

func (m *memStore) Delete(_ context.Context, id domain.ID) error {
	if _, ok := m.items[id]; !ok {
		return domain.NotFoundError{Resource: "widget"}
	}
	delete(m.items, id)
	return nil
}

type hookCalls struct {
	created, deleted []domain.ID
	updated          [][2]string
}

func (h *hookCalls) AfterCreate(_ context.Context, w widget) error {
	h.created = append(h.created, w.ID)
	return nil
}

func (h *hookCalls) AfterUpdate(_ context.Context, before, after widget) error {
	h.updated = append(h.updated, [2]string{before.Name, after.Name})
	return nil
}

func (h *hookCalls) AfterDelete(_ context.Context, w widget) error {
	h.deleted = append(h.deleted, w.ID)
	return nil
}

func widgetRouter(store *memStore, hooks *hookCalls) *gin.Engine {
	res := NewResource[widget](store, zerolog.Nop())
	if hooks != nil {
		res.Hooks = hooks
	}
	r := gin.New()
	r.Use(ErrorHandler(zerolog.Nop(), false), middleware.ParseBody(middleware.DefaultBodyLimit))
	g := r.Group("/widgets")
	g.GET("", Handle(res.GetAll))
	g.POST("", Handle(res.CreateOne))
	g.GET("/:id", Handle(res.GetOne))
	g.PATCH("/:id", Handle(res.UpdateOne))
	g.DELETE("/:id", Handle(res.DeleteOne))
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGetAllEnvelope(t *testing.T) {
	r := widgetRouter(newMemStore(widget{ID: 1, Name: "a", Price: 3}, widget{ID: 2, Name: "b", Price: 4}), nil)

	w := serve(r, http.MethodGet, "/widgets?fields=name", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := jsonBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["results"])
	items := body["data"].(map[string]any)["widgets"].([]any)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "a"}, items[0])
}

func TestGetAllEmptyIsNotAnError(t *testing.T) {
	r := widgetRouter(newMemStore(), nil)

	w := serve(r, http.MethodGet, "/widgets", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), jsonBody(t, w)["results"])
}

func TestGetAllPageThatDoesNotExist(t *testing.T) {
	r := widgetRouter(newMemStore(widget{ID: 1, Name: "a"}), nil)

	w := serve(r, http.MethodGet, "/widgets?page=9999&limit=10", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This page does not exist", jsonBody(t, w)["message"])

	w = serve(r, http.MethodGet, "/widgets?page=9999", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), jsonBody(t, w)["results"])
}

func TestGetAllHugePageDoesNotWrap(t *testing.T) {
	r := widgetRouter(newMemStore(widget{ID: 1, Name: "a"}, widget{ID: 2, Name: "b"}), nil)

	w := serve(r, http.MethodGet, "/widgets?page=4294967297&limit=4294967296", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This page does not exist", jsonBody(t, w)["message"])

	w = serve(r, http.MethodGet, "/widgets?page=4611686018427387904", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), jsonBody(t, w)["results"])
}

func TestGetOneMissing(t *testing.T) {
	r := widgetRouter(newMemStore(), nil)

	w := serve(r, http.MethodGet, "/widgets/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No widget found with that ID", jsonBody(t, w)["message"])

	w = serve(r, http.MethodGet, "/widgets/nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOne(t *testing.T) {
	hooks := &hookCalls{}
	r := widgetRouter(newMemStore(), hooks)

	w := serve(r, http.MethodPost, "/widgets", `{"id":99,"name":"gear","price":12.5}`)
	require.Equal(t, http.StatusCreated, w.Code)
	got := jsonBody(t, w)["data"].(map[string]any)["widget"].(map[string]any)
	assert.Equal(t, float64(1), got["id"])
	assert.Equal(t, "gear", got["name"])
	assert.Equal(t, []domain.ID{1}, hooks.created)

	w = serve(r, http.MethodPost, "/widgets", `{"price":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/widgets", `{"name":"gear","price":"cheap"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, hooks.created, 1)
}

func TestUpdateOneIsIdempotent(t *testing.T) {
	hooks := &hookCalls{}
	store := newMemStore(widget{ID: 1, Name: "old", Price: 5, Tags: []string{"x"}})
	r := widgetRouter(store, hooks)

	body := `{"name":"new","tags":["a","b"]}`
	first := serve(r, http.MethodPatch, "/widgets/1", body)
	require.Equal(t, http.StatusOK, first.Code)
	stateAfterFirst := store.items[1]

	second := serve(r, http.MethodPatch, "/widgets/1", body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
	stateAfterSecond := store.items[1]
	stateAfterSecond.Version = stateAfterFirst.Version
	assert.Equal(t, stateAfterFirst, stateAfterSecond)
	assert.Equal(t, 5.0, stateAfterSecond.Price)
	assert.Equal(t, [][2]string{{"old", "new"}, {"new", "new"}}, hooks.updated)

	w := serve(r, http.MethodPatch, "/widgets/7", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOne(t *testing.T) {
	hooks := &hookCalls{}
	r := widgetRouter(newMemStore(widget{ID: 1, Name: "a"}), hooks)

	w := serve(r, http.MethodDelete, "/widgets/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, []domain.ID{1}, hooks.deleted)

	w = serve(r, http.MethodDelete, "/widgets/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, hooks.deleted, 1)
}
