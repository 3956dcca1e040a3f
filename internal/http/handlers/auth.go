package handlers

import (
	"net/http"
	"strings"
	"time"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/http/middleware"
	"natours/internal/services"

	"github.com/gin-gonic/gin"
)

const loggedOutCookieTTL = 10 * time.Second

// AuthHandler serves signup, login and the password flows.
type AuthHandler struct {
	Auth       *services.AuthService
	CookieDays int
	Production bool
	// PublicURL overrides the origin derived from the request in links.
	PublicURL string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	services.PasswordInput
}

// sendToken sets the session cookie and answers with the token and user.
func (h AuthHandler) sendToken(c *gin.Context, status int, u models.User, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, h.CookieDays*24*60*60, "/", "", h.secure(c), true)
	c.JSON(status, gin.H{"status": "success", "token": token, "data": gin.H{"user": u}})
}

func (h AuthHandler) secure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

func (h AuthHandler) Signup(c *gin.Context) error {
	var in services.SignupInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}
	u, token, err := h.Auth.Signup(c.Request.Context(), in, baseURL(c, h.PublicURL)+"/me")
	if err != nil {
		return err
	}
	h.sendToken(c, http.StatusCreated, u, token)
	return nil
}

func (h AuthHandler) Login(c *gin.Context) error {
	var in loginRequest
	if err := decodeBody(c, &in); err != nil {
		return err
	}
	u, token, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	if c.ContentType() == "application/x-www-form-urlencoded" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookie, token, h.CookieDays*24*60*60, "/", "", h.secure(c), true)
		c.Redirect(http.StatusSeeOther, "/")
		return nil
	}
	h.sendToken(c, http.StatusOK, u, token)
	return nil
}

func (h AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, middleware.LoggedOutToken, int(loggedOutCookieTTL.Seconds()), "/", "", h.secure(c), true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h AuthHandler) ForgotPassword(c *gin.Context) error {
	email := bodyString(middleware.Body(c), "email")
	if strings.TrimSpace(email) == "" {
		return domain.ValidationError{Msg: "Please provide your email address"}
	}
	base := baseURL(c, h.PublicURL) + "/api/v1/users/resetPassword/"
	err := h.Auth.ForgotPassword(c.Request.Context(), email, func(token string) string {
		return base + token
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
	return nil
}

func (h AuthHandler) ResetPassword(c *gin.Context) error {
	var in services.PasswordInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}
	u, token, err := h.Auth.ResetPassword(c.Request.Context(), c.Param("token"), in)
	if err != nil {
		return err
	}
	h.sendToken(c, http.StatusOK, u, token)
	return nil
}

func (h AuthHandler) UpdatePassword(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var in updatePasswordRequest
	if err := decodeBody(c, &in); err != nil {
		return err
	}
	u, token, err := h.Auth.UpdatePassword(c.Request.Context(), me.ID, in.PasswordCurrent, in.PasswordInput)
	if err != nil {
		return err
	}
	h.sendToken(c, http.StatusOK, u, token)
	return nil
}

// baseURL is the public origin used in emails and payment redirects.
func baseURL(c *gin.Context, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
