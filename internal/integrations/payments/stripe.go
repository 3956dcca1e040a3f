// Package payments creates hosted checkout sessions and reads the gateway's
// signed webhook events.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"natours/internal/domain"
	"natours/internal/utils"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutRequest describes a single-tour purchase.
type CheckoutRequest struct {
	TourID        domain.ID
	TourName      string
	Summary       string
	ImageURL      string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedCheckout is the part of a paid session needed to record a booking.
type CompletedCheckout struct {
	SessionID     string
	TourID        domain.ID
	CustomerEmail string
	Amount        float64
}

// Gateway is the payment provider seen by the booking flow.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// ParseWebhook verifies the signature. It returns nil for events other
	// than a completed checkout.
	ParseWebhook(payload []byte, signature string) (*CompletedCheckout, error)
}

type StripeGateway struct {
	sessions      session.Client
	webhookSecret string
	currency      string
	breaker       *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
}

func NewStripeGateway(secretKey, webhookSecret, currency string, log zerolog.Logger) *StripeGateway {
	return &StripeGateway{
		sessions:      session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		webhookSecret: webhookSecret,
		currency:      currency,
		breaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
			Name:    "stripe",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		}),
	}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(req.TourName + " Tour"),
		Description: stripe.String(req.Summary),
	}
	if req.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{req.ImageURL})
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(req.TourID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				UnitAmount:  stripe.Int64(utils.ToCents(req.Price)),
				ProductData: product,
			},
		}},
	}
	params.Context = ctx

	s, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		return CheckoutSession{}, domain.IntegrationError{Service: "stripe", Msg: "Could not create checkout session", Err: err}
	}
	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, domain.ValidationError{Msg: "Webhook error: " + err.Error(), Err: err}
	}
	if string(event.Type) != EventCheckoutCompleted {
		return nil, nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, domain.ValidationError{Msg: "Webhook error: malformed checkout session", Err: err}
	}
	tourID, err := strconv.ParseInt(s.ClientReferenceID, 10, 64)
	if err != nil || tourID <= 0 {
		return nil, domain.ValidationError{Msg: fmt.Sprintf("Webhook error: invalid client reference %q", s.ClientReferenceID)}
	}
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return &CompletedCheckout{
		SessionID:     s.ID,
		TourID:        domain.ID(tourID),
		CustomerEmail: email,
		Amount:        utils.FromCents(s.AmountTotal),
	}, nil
}
