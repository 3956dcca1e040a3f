package services

import (
	"context"
	"fmt"
	"strings"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/integrations/payments"
	"natours/internal/logging"

	"github.com/rs/zerolog"
)

type BookingStore interface {
	Insert(ctx context.Context, b models.Booking) (models.Booking, error)
	FindByID(ctx context.Context, id domain.ID, populate ...string) (models.Booking, error)
	Exists(ctx context.Context, userID, tourID domain.ID) (bool, error)
	TourIDsForUser(ctx context.Context, userID domain.ID) ([]domain.ID, error)
}

type BookingTours interface {
	FindByID(ctx context.Context, id domain.ID, populate ...string) (models.Tour, error)
	FindByIDs(ctx context.Context, ids []domain.ID) ([]models.Tour, error)
}

type BookingCustomers interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// BookingService runs the purchase flow: checkout session, webhook
// confirmation and the documents that follow.
type BookingService struct {
	Bookings BookingStore
	Tours    BookingTours
	Users    BookingCustomers
	Payments payments.Gateway
	Docs     DocsService
	Log      zerolog.Logger
}

// Checkout opens a hosted payment page for one tour. baseURL is the public
// origin the customer returns to.
func (s BookingService) Checkout(ctx context.Context, tourID domain.ID, caller domain.Identity, baseURL string) (payments.CheckoutSession, error) {
	tour, err := s.Tours.FindByID(ctx, tourID)
	if err != nil {
		return payments.CheckoutSession{}, err
	}
	base := strings.TrimRight(baseURL, "/")
	req := payments.CheckoutRequest{
		TourID:        tour.ID,
		TourName:      tour.Name,
		Summary:       tour.Summary,
		Price:         tour.Price,
		CustomerEmail: caller.Email,
		SuccessURL:    base + "/my-tours?alert=booking",
		CancelURL:     base + "/tour/" + tour.Slug,
	}
	if tour.ImageCover != "" {
		req.ImageURL = fmt.Sprintf("%s/img/tours/%s", base, tour.ImageCover)
	}
	sess, err := s.Payments.CreateCheckout(ctx, req)
	if err != nil {
		return payments.CheckoutSession{}, err
	}
	logging.Event(s.Log, "bookings", "checkout").
		Int64("tour_id", int64(tour.ID)).
		Int64("user_id", int64(caller.ID)).
		Str("session_id", sess.ID).
		Send()
	return sess, nil
}

// HandleWebhook records a booking for a verified completed checkout. Other
// event types return a nil booking.
func (s BookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.Booking, error) {
	done, err := s.Payments.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if done == nil {
		return nil, nil
	}
	user, err := s.Users.FindByEmail(ctx, done.CustomerEmail)
	if err != nil {
		return nil, fmt.Errorf("webhook customer %q: %w", done.CustomerEmail, err)
	}

	b := models.NewBooking()
	b.Tour = models.TourRef{ID: done.TourID}
	b.User = models.UserRef{ID: user.ID}
	b.Price = done.Amount
	b.Paid = true
	saved, err := s.Bookings.Insert(ctx, b)
	if err != nil {
		return nil, err
	}
	logging.Event(s.Log, "bookings", "webhook_booking").
		Int64("booking_id", int64(saved.ID)).
		Str("session_id", done.SessionID).
		Send()
	return &saved, nil
}

// Invoice renders the invoice of a booking for its owner or for staff.
func (s BookingService) Invoice(ctx context.Context, id domain.ID, caller domain.Identity) ([]byte, string, error) {
	b, err := s.Bookings.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if b.User.ID != caller.ID && !caller.HasRole(domain.RoleAdmin, domain.RoleLeadGuide) {
		return nil, "", domain.AuthorizationError{}
	}
	return s.Docs.GenerateInvoice(b)
}

// MyTours lists the tours the user has booked.
func (s BookingService) MyTours(ctx context.Context, userID domain.ID) ([]models.Tour, error) {
	ids, err := s.Bookings.TourIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Tour{}, nil
	}
	return s.Tours.FindByIDs(ctx, ids)
}

func (s BookingService) HasBooked(ctx context.Context, userID, tourID domain.ID) (bool, error) {
	return s.Bookings.Exists(ctx, userID, tourID)
}
