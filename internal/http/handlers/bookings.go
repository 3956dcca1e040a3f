package handlers

import (
	"fmt"
	"io"
	"net/http"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/services"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

type BookingHandler struct {
	Bookings  *Resource[models.Booking]
	Service   services.BookingService
	PublicURL string
}

func (h BookingHandler) CheckoutSession(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	tourID, err := idParam(c, "tourId")
	if err != nil {
		return err
	}
	sess, err := h.Service.Checkout(c.Request.Context(), tourID, me, baseURL(c, h.PublicURL))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "session": sess})
	return nil
}

func (h BookingHandler) Invoice(c *gin.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	pdf, filename, err := h.Service.Invoice(c.Request.Context(), id, me)
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
	return nil
}

// Webhook receives the payment provider's signed events. It reads the raw
// body, so it must not sit behind ParseBody.
func (h BookingHandler) Webhook(c *gin.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		return domain.ValidationError{Msg: "Webhook error: could not read body", Err: err}
	}
	if _, err := h.Service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
	return nil
}
