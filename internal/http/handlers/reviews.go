package handlers

import (
	"context"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

const (
	msgNotPurchased = "You can't review tour you did not purchase"
	msgTourMissing  = "Tour id is not specified"
)

type PurchaseChecker interface {
	HasBooked(ctx context.Context, userID, tourID domain.ID) (bool, error)
}

type ReviewHandler struct {
	Reviews   *Resource[models.Review]
	Purchases PurchaseChecker
}

// RequirePurchase lets a caller review only a tour they booked. It runs
// after the tour and user were injected into the body.
func (h ReviewHandler) RequirePurchase(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	tourID, ok := bodyID(middleware.Body(c)["tour"])
	if !ok {
		return domain.ValidationError{Msg: msgTourMissing}
	}
	booked, err := h.Purchases.HasBooked(c.Request.Context(), me.ID, tourID)
	if err != nil {
		return err
	}
	if !booked {
		return domain.AuthorizationError{Msg: msgNotPurchased}
	}
	return nil
}
