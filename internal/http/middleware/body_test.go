package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"natours/internal/http/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBodyJSON(t *testing.T) {
	r := newEngine()
	r.POST("/x", middleware.ParseBody(middleware.DefaultBodyLimit), echo)

	w := do(t, r, http.MethodPost, "/x", `{"name":"Ann","rating":4.5}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"name": "Ann", "rating": 4.5}, decode(t, w)["body"])

	w = do(t, r, http.MethodPost, "/x", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", decode(t, w)["message"])
}

func TestParseBodyRejectsLargePayload(t *testing.T) {
	r := newEngine()
	r.POST("/x", middleware.ParseBody(16), echo)

	w := do(t, r, http.MethodPost, "/x", `{"name":"a much longer name than sixteen bytes"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestParseBodyForm(t *testing.T) {
	r := newEngine()
	r.POST("/submit", middleware.ParseBody(middleware.DefaultBodyLimit), echo)

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("name=Ann+Lee&email=ann%40example.io"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"name": "Ann Lee", "email": "ann@example.io"}, decode(t, w)["body"])
}

func TestParseBodySkipsReads(t *testing.T) {
	r := newEngine()
	r.GET("/x", middleware.ParseBody(middleware.DefaultBodyLimit), echo)

	w := do(t, r, http.MethodGet, "/x", "", nil)
	assert.Equal(t, map[string]any{}, decode(t, w)["body"])
}
