package handlers

import (
	"fmt"
	"net/http"

	"natours/internal/domain"
	"natours/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	msgSomethingWrong = "Something went very wrong!"

	pageErrorsKey = "page_errors"
)

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// statusFor maps a domain error onto an HTTP status and a machine code.
func statusFor(err error) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case domain.IsConflict(err):
		return http.StatusBadRequest, "conflict"
	case domain.IsAuthentication(err):
		return http.StatusUnauthorized, "unauthenticated"
	case domain.IsAuthorization(err):
		return http.StatusForbidden, "forbidden"
	case domain.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case domain.IsIntegration(err):
		return http.StatusInternalServerError, "integration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessage hides internal failure details in production. Integration
// errors carry a message meant for clients.
func publicMessage(err error, status int, production bool) string {
	if status < http.StatusInternalServerError || !production {
		return err.Error()
	}
	if domain.IsIntegration(err) {
		return err.Error()
	}
	return msgSomethingWrong
}

// ErrorHandler renders the last error recorded by handlers or middleware.
// It must be registered before every middleware that can fail.
func ErrorHandler(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, code := statusFor(err)

		ev := log.Warn()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("code", code).
			Int("status", status).
			Msg("request failed")

		if c.Writer.Written() {
			return
		}
		msg := publicMessage(err, status, production)
		if c.GetBool(pageErrorsKey) {
			c.HTML(status, "error.html", gin.H{"Title": "Something went wrong!", "Msg": msg})
			return
		}
		resp := ErrorResponse{Status: "error", Message: msg}
		if !production {
			resp.Error = err.Error()
			resp.Code = code
		}
		c.JSON(status, resp)
	}
}

// PageErrors makes ErrorHandler render the error page instead of JSON.
func PageErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(pageErrorsKey, true)
		c.Next()
	}
}

// Recovery turns a panic into an InternalError for ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(domain.InternalError{Msg: "panic recovered", Err: fmt.Errorf("%v", recovered)})
		c.Abort()
	})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	_ = c.Error(domain.NotFoundError{Msg: fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)})
}
