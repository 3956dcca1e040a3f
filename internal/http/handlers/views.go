package handlers

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/http/middleware"
	"natours/internal/query"
	"natours/internal/services"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

var alerts = map[string]string{
	"booking": "Your booking was successful! Please check your email for a confirmation. " +
		"If your booking doesn't show up here immediately, please come back later.",
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type TourPages interface {
	Find(ctx context.Context, s query.Spec) ([]models.Tour, error)
	FindBySlug(ctx context.Context, slug string) (models.Tour, error)
}

type BookedTours interface {
	MyTours(ctx context.Context, userID domain.ID) ([]models.Tour, error)
}

// ViewHandler renders the server-side pages.
type ViewHandler struct {
	Tours    TourPages
	Bookings BookedTours
	Auth     *services.AuthService
}

func (h ViewHandler) page(c *gin.Context, status int, name string, data gin.H) {
	if id, ok := middleware.CurrentIdentity(c); ok {
		data["User"] = id
	}
	if msg, ok := alerts[c.Query("alert")]; ok {
		data["Alert"] = msg
	}
	c.HTML(status, name, data)
}

func (h ViewHandler) Overview(c *gin.Context) error {
	tours, err := h.Tours.Find(c.Request.Context(), query.Spec{Page: query.DefaultPage, Limit: query.DefaultLimit})
	if err != nil {
		return err
	}
	h.page(c, http.StatusOK, "overview.html", gin.H{"Title": "All Tours", "Tours": tours})
	return nil
}

func (h ViewHandler) Tour(c *gin.Context) error {
	tour, err := h.Tours.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NotFoundError{Msg: "There is no tour with that name.", Err: err}
		}
		return err
	}
	h.page(c, http.StatusOK, "tour.html", gin.H{"Title": tour.Name + " Tour", "Tour": tour})
	return nil
}

func (h ViewHandler) Login(c *gin.Context) {
	h.page(c, http.StatusOK, "login.html", gin.H{"Title": "Log into your account"})
}

func (h ViewHandler) Account(c *gin.Context) {
	h.page(c, http.StatusOK, "account.html", gin.H{"Title": "Your account"})
}

func (h ViewHandler) MyTours(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	tours, err := h.Bookings.MyTours(c.Request.Context(), me.ID)
	if err != nil {
		return err
	}
	h.page(c, http.StatusOK, "overview.html", gin.H{"Title": "My Tours", "Tours": tours})
	return nil
}

// SubmitUserData handles the account form post.
func (h ViewHandler) SubmitUserData(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	body := middleware.Body(c)
	name, email := bodyString(body, "name"), bodyString(body, "email")
	u, err := h.Auth.UpdateProfile(c.Request.Context(), me.ID, services.ProfileInput{Name: &name, Email: &email})
	if err != nil {
		return err
	}
	middleware.SetIdentity(c, u.Identity())
	h.page(c, http.StatusOK, "account.html", gin.H{"Title": "Your account"})
	return nil
}
