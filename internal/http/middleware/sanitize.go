package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

var markupEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitize strips operator-looking keys ("$gt", "a.b") from the body and
// escapes markup in string values.
func Sanitize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get(bodyKey); ok {
			if body, ok := v.(map[string]any); ok {
				SetBody(c, sanitizeMap(body))
			}
		}
		c.Next()
	}
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return markupEscaper.Replace(t)
	case map[string]any:
		return sanitizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// HPP collapses repeated query parameters to their last value, except for
// whitelisted keys that may legitimately repeat.
func HPP(whitelist ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(whitelist))
	for _, w := range whitelist {
		allowed[w] = struct{}{}
	}
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		changed := false
		for k, vs := range q {
			if len(vs) < 2 {
				continue
			}
			if _, ok := allowed[k]; ok {
				continue
			}
			q[k] = vs[len(vs)-1:]
			changed = true
		}
		if changed {
			c.Request.URL.RawQuery = q.Encode()
		}
		c.Next()
	}
}
