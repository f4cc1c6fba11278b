package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zapagenda/config"
	bookingRepo "zapagenda/database/repository/booking"
	"zapagenda/models"
	"zapagenda/services/booking"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

type stubBookingStore struct {
	bookings map[string]*models.Booking
	payments []models.Payment
}

func (s *stubBookingStore) CreateBooking(ctx context.Context, bk *models.Booking) error {
	s.bookings[bk.ID] = bk
	return nil
}

func (s *stubBookingStore) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	bk, ok := s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking not found: %s", bookingID)
	}
	return bk, nil
}

func (s *stubBookingStore) ConfirmBooking(ctx context.Context, bookingID string) (bool, error) {
	bk, ok := s.bookings[bookingID]
	if !ok {
		return false, fmt.Errorf("booking not found: %s", bookingID)
	}
	if bk.Status != models.BookingPending {
		return false, nil
	}
	bk.Status = models.BookingConfirmed
	bk.PaymentStatus = "paid"
	return true, nil
}

func (s *stubBookingStore) AbandonBooking(ctx context.Context, bookingID string) (bool, error) {
	return false, nil
}

func (s *stubBookingStore) HasOverlap(ctx context.Context, tenantID, professionalID string, start, end time.Time) (bool, error) {
	return false, nil
}

func (s *stubBookingStore) InsertPayment(ctx context.Context, payment *models.Payment) error {
	for _, p := range s.payments {
		if p.StripeSessionID == payment.StripeSessionID {
			return bookingRepo.ErrDuplicatePayment
		}
	}
	s.payments = append(s.payments, *payment)
	return nil
}

func (s *stubBookingStore) FinancialMetrics(ctx context.Context, tenantID string, now time.Time) (*models.FinancialMetrics, error) {
	return &models.FinancialMetrics{}, nil
}

type stripeFixture struct {
	store  *stubBookingStore
	sender *stubSender
}

func setupStripeWebhook(t *testing.T) *stripeFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := config.AppConfig.StripeWebhookSecret
	config.AppConfig.StripeWebhookSecret = "whsec_test"
	t.Cleanup(func() { config.AppConfig.StripeWebhookSecret = prev })

	fx := &stripeFixture{
		store: &stubBookingStore{bookings: map[string]*models.Booking{
			"bk-1": {
				ID:               "bk-1",
				TenantID:         "t1",
				ClientName:       "Ana",
				ClientPhone:      "5511999990000",
				ServiceName:      "Corte Tradicional",
				ProfessionalName: "João Silva",
				StartTime:        time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC),
				Status:           models.BookingPending,
				PaymentStatus:    "pending",
			},
		}},
		sender: &stubSender{},
	}
	TenantRepo = &stubTenants{tenant: &models.Tenant{ID: "t1", Name: "Barbearia do Zé", WhatsAppInstanceID: "inst-1"}}
	Sender = fx.sender
	Executor = booking.NewExecutor(TenantRepo, fx.store, nil, nil)
	return fx
}

func completedSessionEvent(sessionID, bookingID string) []byte {
	session := map[string]any{
		"id":           sessionID,
		"amount_total": 2500,
		"currency":     "brl",
		"metadata":     map[string]string{},
	}
	if bookingID != "" {
		session["metadata"] = map[string]string{"booking_id": bookingID}
	}
	body, _ := json.Marshal(map[string]any{
		"id":          "evt_1",
		"api_version": stripe.APIVersion,
		"type":        "checkout.session.completed",
		"data":        map[string]any{"object": session},
	})
	return body
}

func postStripe(t *testing.T, payload []byte, signature string) int {
	t.Helper()
	router := gin.New()
	router.POST("/webhook/stripe", StripeWebhookHandler)

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func signPayload(payload []byte) string {
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, "whsec_test")
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	fx := setupStripeWebhook(t)
	payload := completedSessionEvent("cs_1", "bk-1")

	ts := time.Now()
	forged := webhook.ComputeSignature(ts, payload, "whsec_wrong")
	code := postStripe(t, payload, fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(forged)))

	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, models.BookingPending, fx.store.bookings["bk-1"].Status)
	require.Empty(t, fx.sender.sent)
}

func TestStripeWebhookConfirmsBookingAndMessagesClient(t *testing.T) {
	fx := setupStripeWebhook(t)
	payload := completedSessionEvent("cs_1", "bk-1")

	code := postStripe(t, payload, signPayload(payload))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, models.BookingConfirmed, fx.store.bookings["bk-1"].Status)
	require.Len(t, fx.store.payments, 1)
	require.Equal(t, "cs_1", fx.store.payments[0].StripeSessionID)
	require.Equal(t, int64(2500), fx.store.payments[0].AmountCents)
	require.Len(t, fx.sender.sent, 1)
	require.Contains(t, fx.sender.sent[0], "Pagamento confirmado, Ana")
	require.Contains(t, fx.sender.sent[0], "Corte Tradicional")
	require.Contains(t, fx.sender.sent[0], "01/09/2026 16:00")
}

func TestStripeWebhookRedeliveryDoesNotRepeatMessage(t *testing.T) {
	fx := setupStripeWebhook(t)
	payload := completedSessionEvent("cs_1", "bk-1")

	require.Equal(t, http.StatusOK, postStripe(t, payload, signPayload(payload)))
	require.Equal(t, http.StatusOK, postStripe(t, payload, signPayload(payload)))

	require.Equal(t, models.BookingConfirmed, fx.store.bookings["bk-1"].Status)
	require.Len(t, fx.store.payments, 1)
	require.Len(t, fx.sender.sent, 1)
}

func TestStripeWebhookIgnoresSessionWithoutBookingID(t *testing.T) {
	fx := setupStripeWebhook(t)
	payload := completedSessionEvent("cs_1", "")

	code := postStripe(t, payload, signPayload(payload))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, models.BookingPending, fx.store.bookings["bk-1"].Status)
	require.Empty(t, fx.store.payments)
	require.Empty(t, fx.sender.sent)
}

func TestStripeWebhookIgnoresOtherEventTypes(t *testing.T) {
	fx := setupStripeWebhook(t)
	payload, _ := json.Marshal(map[string]any{
		"id":          "evt_2",
		"api_version": stripe.APIVersion,
		"type":        "payment_intent.created",
		"data":        map[string]any{"object": map[string]any{"id": "pi_1"}},
	})

	code := postStripe(t, payload, signPayload(payload))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, models.BookingPending, fx.store.bookings["bk-1"].Status)
	require.Empty(t, fx.sender.sent)
}
