package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"natours/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusTeapot, "pong") })

	w := do(t, r, http.MethodGet, "/ping", "", nil)
	rid := w.Header().Get(middleware.RequestIDHeader)
	require.Len(t, rid, 36)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, rid, line["request_id"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "/ping", line["path"])

	w = do(t, r, http.MethodGet, "/ping", "", map[string]string{middleware.RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middleware.SecurityHeaders(true))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(t, r, http.MethodGet, "/", "", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "js.stripe.com")
}
