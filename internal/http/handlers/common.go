package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"natours/internal/domain"
	"natours/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// HandlerFunc is a gin handler that reports failures by returning them.
type HandlerFunc func(c *gin.Context) error

// Handle forwards a returned error to ErrorHandler.
func Handle(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

func respondOne(c *gin.Context, status int, name string, v any) {
	c.JSON(status, gin.H{"status": "success", "data": gin.H{name: v}})
}

func respondList(c *gin.Context, name string, items any, n int) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": n, "data": gin.H{name: items}})
}

func idParam(c *gin.Context, name string) (domain.ID, error) {
	return domain.ParseID(c.Param(name))
}

func currentIdentity(c *gin.Context) (domain.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return domain.Identity{}, domain.AuthenticationError{Msg: "You are not logged in. Please login to get a token"}
	}
	return id, nil
}

// decodeBody overlays the parsed request body onto dst. Keys that dst does
// not declare are ignored and the id is never taken from the body.
func decodeBody(c *gin.Context, dst any) error {
	body := middleware.Body(c)
	clean := make(map[string]any, len(body))
	for k, v := range body {
		if k == "id" || k == "_id" {
			continue
		}
		clean[k] = v
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return domain.ValidationError{Msg: "Invalid input data", Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.ValidationError{Msg: fmt.Sprintf("Invalid %s: %s", typeErr.Field, typeErr.Value), Err: err}
		}
		return domain.ValidationError{Msg: "Invalid input data", Err: err}
	}
	return nil
}

// bodyID reads an id from a body value that may be a JSON number, an int
// injected by middleware or a form string.
func bodyID(v any) (domain.ID, bool) {
	switch t := v.(type) {
	case int64:
		return domain.ID(t), t > 0
	case float64:
		return domain.ID(t), t > 0 && t == float64(int64(t))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return domain.ID(n), err == nil && n > 0
	case map[string]any:
		return bodyID(t["id"])
	}
	return 0, false
}

func bodyString(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}
