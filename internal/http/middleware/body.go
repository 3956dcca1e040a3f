package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"natours/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	bodyKey = "body"

	// DefaultBodyLimit caps JSON and urlencoded bodies.
	DefaultBodyLimit int64 = 10 << 10
	// MaxUploadSize caps multipart bodies carrying images.
	MaxUploadSize int64 = 10 << 20
)

var errBodyTooLarge = errors.New("request body too large")

// ParseBody decodes the request body once into a map the shaping middleware
// and handlers work on. JSON and urlencoded bodies are capped at limit bytes.
func ParseBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		body, err := readBody(c.Writer, c.Request, limit)
		if errors.Is(err, errBodyTooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"status":  "error",
				"message": "Request body larger than 10kb",
			})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		SetBody(c, body)
		c.Next()
	}
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) (map[string]any, error) {
	body := map[string]any{}
	if r.Body == nil {
		return body, nil
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, domain.ValidationError{Msg: "Invalid multipart body", Err: err}
		}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				body[k] = vs[len(vs)-1]
			}
		}
		return body, nil
	case "application/x-www-form-urlencoded":
		r.Body = io.NopCloser(io.LimitReader(r.Body, limit+1))
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if int64(len(raw)) > limit {
			return nil, errBodyTooLarge
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err := r.ParseForm(); err != nil {
			return nil, domain.ValidationError{Msg: "Invalid form body", Err: err}
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				body[k] = vs[len(vs)-1]
			}
		}
		return body, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, errBodyTooLarge
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, domain.ValidationError{Msg: "Invalid JSON body", Err: err}
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

// Body returns the parsed request body. It is never nil.
func Body(c *gin.Context) map[string]any {
	if v, ok := c.Get(bodyKey); ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	m := map[string]any{}
	c.Set(bodyKey, m)
	return m
}

func SetBody(c *gin.Context, body map[string]any) {
	c.Set(bodyKey, body)
}
