package middleware_test

import (
	"net/http"
	"testing"

	"natours/internal/http/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeBody(t *testing.T) {
	r := newEngine()
	r.POST("/x", middleware.ParseBody(middleware.DefaultBodyLimit), middleware.Sanitize(), echo)

	w := do(t, r, http.MethodPost, "/x",
		`{"email":{"$gt":""},"name":"<script>alert(1)</script>","a.b":1,"tags":["<b>"]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{
		"email": map[string]any{},
		"name":  "&lt;script&gt;alert(1)&lt;/script&gt;",
		"tags":  []any{"&lt;b&gt;"},
	}, decode(t, w)["body"])
}

func TestHPPKeepsLastValueUnlessWhitelisted(t *testing.T) {
	r := newEngine()
	r.GET("/tours", middleware.HPP("duration"), echo)

	w := do(t, r, http.MethodGet, "/tours?sort=price&sort=duration&duration=5&duration=9", "", nil)
	assert.Equal(t, "duration=5&duration=9&sort=duration", decode(t, w)["query"])

	w = do(t, r, http.MethodGet, "/tours?sort=price", "", nil)
	assert.Equal(t, "sort=price", decode(t, w)["query"])
}
