package bookingRepo

import (
	"context"
	"errors"
	"time"

	"zapagenda/models"
)

// ErrDuplicatePayment is returned when a payment for the same checkout
// session was already recorded.
var ErrDuplicatePayment = errors.New("payment already recorded for session")

// BookingRepository persists bookings and their payments.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// ConfirmBooking flips a booking to confirmed. It reports whether this
	// call performed the transition, so repeated webhook deliveries can skip
	// the notification fan-out.
	ConfirmBooking(ctx context.Context, bookingID string) (bool, error)
	// AbandonBooking marks a still-pending hold as abandoned; a booking in
	// any other status is left untouched.
	AbandonBooking(ctx context.Context, bookingID string) (bool, error)

	// HasOverlap reports whether a non-abandoned booking for the professional
	// overlaps the given window.
	HasOverlap(ctx context.Context, tenantID, professionalID string, start, end time.Time) (bool, error)

	// InsertPayment returns ErrDuplicatePayment on a repeated session ID.
	InsertPayment(ctx context.Context, payment *models.Payment) error

	FinancialMetrics(ctx context.Context, tenantID string, now time.Time) (*models.FinancialMetrics, error)
}
