package middleware

import (
	"net/http"

	"natours/internal/domain"

	"github.com/gin-gonic/gin"
)

// FilterBody keeps only the named body keys. Everything else is dropped
// without an error.
func FilterBody(fields ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	return func(c *gin.Context) {
		body := Body(c)
		filtered := make(map[string]any, len(body))
		for k, v := range body {
			if _, ok := allowed[k]; ok {
				filtered[k] = v
			}
		}
		SetBody(c, filtered)
		c.Next()
	}
}

// InjectParentID copies the route parameter into field: the query for reads,
// the body for writes. An explicit value wins.
func InjectParentID(param, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(param)
		if raw == "" {
			c.Next()
			return
		}
		id, err := domain.ParseID(raw)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if c.Request.Method == http.MethodGet {
			q := c.Request.URL.Query()
			if q.Get(field) == "" {
				q.Set(field, id.String())
				c.Request.URL.RawQuery = q.Encode()
			}
		} else {
			body := Body(c)
			if v, ok := body[field]; !ok || v == nil || v == "" {
				body[field] = int64(id)
			}
		}
		c.Next()
	}
}

// InjectIdentity sets body[field] to the caller's id, replacing any client value.
func InjectIdentity(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			_ = c.Error(domain.AuthenticationError{Msg: msgNotLoggedIn})
			c.Abort()
			return
		}
		Body(c)[field] = int64(id.ID)
		c.Next()
	}
}

// Preset overwrites query keys, used by alias routes.
func Preset(values map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		for k, v := range values {
			q.Set(k, v)
		}
		c.Request.URL.RawQuery = q.Encode()
		c.Next()
	}
}
