package middleware_test

import (
	"net/http"
	"testing"

	"natours/internal/http/middleware"

	"github.com/stretchr/testify/assert"
)

func TestProtectWithoutCredential(t *testing.T) {
	r := newEngine()
	r.GET("/api/v1/secret", middleware.Protect(testAuth), echo)

	w := do(t, r, http.MethodGet, "/api/v1/secret", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "You are not logged in. Please login to get a token", body["message"])
	assert.NotContains(t, body, "user")
	assert.NotContains(t, body, "data")
}

func TestProtectRejectsBadToken(t *testing.T) {
	r := newEngine()
	r.GET("/api/v1/secret", middleware.Protect(testAuth), echo)

	w := do(t, r, http.MethodGet, "/api/v1/secret", "", map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token. Please log in again!", decode(t, w)["message"])
}

func TestProtectAcceptsBearerAndCookie(t *testing.T) {
	r := newEngine()
	r.GET("/api/v1/secret", middleware.Protect(testAuth), echo)

	w := do(t, r, http.MethodGet, "/api/v1/secret", "", map[string]string{"Authorization": "Bearer user-token"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["user"])

	w = do(t, r, http.MethodGet, "/api/v1/secret", "", map[string]string{"Cookie": "jwt=admin-token"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["user"])

	w = do(t, r, http.MethodGet, "/api/v1/secret", "", map[string]string{"Cookie": "jwt=loggedout"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthStaysAnonymousOnFailure(t *testing.T) {
	r := newEngine()
	r.GET("/", middleware.OptionalAuth(testAuth), echo)

	w := do(t, r, http.MethodGet, "/", "", map[string]string{"Cookie": "jwt=forged"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "user")

	w = do(t, r, http.MethodGet, "/", "", map[string]string{"Cookie": "jwt=user-token"})
	assert.Equal(t, float64(1), decode(t, w)["user"])
}
