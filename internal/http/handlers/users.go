package handlers

import (
	"net/http"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/http/middleware"
	"natours/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the caller's own account plus admin user management.
type UserHandler struct {
	Users  *Resource[models.User]
	Auth   *services.AuthService
	Images services.ImageService
}

func (h UserHandler) GetMe(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	u, err := h.Auth.Users.FindByID(c.Request.Context(), me.ID)
	if err != nil {
		return err
	}
	respondOne(c, http.StatusOK, "user", u)
	return nil
}

// UpdateMe changes name, email and photo. Password fields are dropped by the
// route's body filter before this runs.
func (h UserHandler) UpdateMe(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var in services.ProfileInput
	body := middleware.Body(c)
	if v, ok := body["name"].(string); ok {
		in.Name = &v
	}
	if v, ok := body["email"].(string); ok {
		in.Email = &v
	}

	if fh, err := c.FormFile("photo"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return domain.ValidationError{Msg: "Could not read uploaded photo", Err: err}
		}
		defer f.Close()
		name, err := h.Images.UserPhoto(me.ID, f)
		if err != nil {
			return err
		}
		in.Photo = name
	}

	u, err := h.Auth.UpdateProfile(c.Request.Context(), me.ID, in)
	if err != nil {
		return err
	}
	respondOne(c, http.StatusOK, "user", u)
	return nil
}

func (h UserHandler) DeleteMe(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	if err := h.Auth.Deactivate(c.Request.Context(), me.ID); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

// CreateUser points admins at signup, which owns password hashing.
func (h UserHandler) CreateUser(c *gin.Context) error {
	return domain.ValidationError{Msg: "This route is not defined! Please use /signup instead"}
}
