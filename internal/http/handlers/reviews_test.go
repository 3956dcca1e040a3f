package handlers

import (
	"context"
	"net/http"
	"testing"

	"natours/internal/domain"
	"natours/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type bookedTours map[domain.ID]bool

func (b bookedTours) HasBooked(_ context.Context, _, tourID domain.ID) (bool, error) {
	return b[tourID], nil
}

func reviewRouter(booked bookedTours) *gin.Engine {
	me := domain.Identity{ID: 5, Name: "Sophie Hale", Role: domain.RoleUser}
	h := ReviewHandler{Purchases: booked}

	r := gin.New()
	r.Use(ErrorHandler(zerolog.Nop(), false), middleware.ParseBody(middleware.DefaultBodyLimit))
	r.Use(func(c *gin.Context) { middleware.SetIdentity(c, me) })
	r.POST("/reviews", Handle(h.RequirePurchase), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "success"})
	})
	return r
}

func TestRequirePurchaseNeedsTour(t *testing.T) {
	r := reviewRouter(bookedTours{2: true})

	w := serve(r, http.MethodPost, "/reviews", `{"review":"Great","rating":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Tour id is not specified", jsonBody(t, w)["message"])
}

func TestRequirePurchaseChecksBooking(t *testing.T) {
	r := reviewRouter(bookedTours{2: true})

	w := serve(r, http.MethodPost, "/reviews", `{"review":"Great","rating":5,"tour":3}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You can't review tour you did not purchase", jsonBody(t, w)["message"])

	w = serve(r, http.MethodPost, "/reviews", `{"review":"Great","rating":5,"tour":"2"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
