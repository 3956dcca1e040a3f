package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"natours/internal/domain"
	"natours/internal/http/handlers"
	"natours/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth map[string]domain.Identity

func (f fakeAuth) Authenticate(_ context.Context, raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, domain.AuthenticationError{Msg: "You are not logged in. Please login to get a token"}
	}
	id, ok := f[raw]
	if !ok {
		return domain.Identity{}, domain.AuthenticationError{Msg: "Invalid token. Please log in again!"}
	}
	return id, nil
}

var testAuth = fakeAuth{
	"user-token":  {ID: 1, Name: "Ann", Role: domain.RoleUser},
	"admin-token": {ID: 2, Name: "Ada", Role: domain.RoleAdmin},
	"guide-token": {ID: 3, Name: "Gus", Role: domain.RoleGuide},
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(handlers.ErrorHandler(zerolog.Nop(), false))
	return r
}

// echo answers with the caller, the parsed body and the raw query.
func echo(c *gin.Context) {
	out := gin.H{"body": middleware.Body(c), "query": c.Request.URL.RawQuery}
	if id, ok := middleware.CurrentIdentity(c); ok {
		out["user"] = id.ID
	}
	c.JSON(http.StatusOK, out)
}

func do(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return out
}
