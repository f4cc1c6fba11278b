package booking

import (
	"context"
	"fmt"
	"math"
	"time"

	"zapagenda/config"
	bookingRepo "zapagenda/database/repository/booking"
	tenantRepo "zapagenda/database/repository/tenant"
	"zapagenda/models"
	"zapagenda/services/notification"
	"zapagenda/services/tasks"
	"zapagenda/utils"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// defaultDurationMinutes applies when the catalog item has no duration.
const defaultDurationMinutes = 30

// Executor runs the side-effecting booking actions: hold creation, deposit
// checkout and confirmation.
type Executor struct {
	tenants  tenantRepo.TenantRepository
	bookings bookingRepo.BookingRepository
	notifier notification.NotificationService
	queue    *asynq.Client
}

func NewExecutor(tenants tenantRepo.TenantRepository, bookings bookingRepo.BookingRepository, notifier notification.NotificationService, queue *asynq.Client) *Executor {
	return &Executor{tenants: tenants, bookings: bookings, notifier: notifier, queue: queue}
}

// resolveService turns whatever identifier the state carries into a concrete
// catalog row, trying id, then display name, then the coarse key.
func (e *Executor) resolveService(ctx context.Context, tenantID string, state models.BookingState) (*models.Service, error) {
	if state.ServiceID != "" {
		svc, err := e.tenants.GetService(ctx, tenantID, state.ServiceID)
		if err == nil && svc != nil {
			return svc, nil
		}
	}
	if state.ServiceName != "" {
		svc, err := e.tenants.FindServiceByName(ctx, tenantID, state.ServiceName)
		if err != nil {
			return nil, err
		}
		if svc != nil {
			return svc, nil
		}
	}
	if state.ServiceKey != "" {
		svc, err := e.tenants.FindServiceByName(ctx, tenantID, state.ServiceKey)
		if err != nil {
			return nil, err
		}
		if svc != nil {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, state.ServiceName)
}

func (e *Executor) resolveProfessional(ctx context.Context, tenantID string, state models.BookingState) (*models.Professional, error) {
	if state.ProfessionalID == "any" {
		pros, err := e.tenants.ListProfessionals(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if len(pros) == 0 {
			return nil, fmt.Errorf("%w: none registered", ErrProfessionalNotFound)
		}
		return &pros[0], nil
	}
	if state.ProfessionalID != "" {
		pro, err := e.tenants.GetProfessional(ctx, tenantID, state.ProfessionalID)
		if err == nil && pro != nil {
			return pro, nil
		}
	}
	if state.ProfessionalName != "" {
		pro, err := e.tenants.FindProfessionalByName(ctx, tenantID, state.ProfessionalName)
		if err != nil {
			return nil, err
		}
		if pro == nil {
			return nil, fmt.Errorf("%w: %s", ErrProfessionalNotFound, state.ProfessionalName)
		}
		return pro, nil
	}
	return nil, fmt.Errorf("%w: no selection", ErrProfessionalNotFound)
}

// CreateHoldBooking inserts a pending hold once every slot resolves to a
// concrete row, and schedules its expiry check.
func (e *Executor) CreateHoldBooking(ctx context.Context, tenant *models.Tenant, conversationID, phone string, state models.BookingState) (*models.Booking, error) {
	logger := utils.GetLogger()

	svc, err := e.resolveService(ctx, tenant.ID, state)
	if err != nil {
		return nil, err
	}
	pro, err := e.resolveProfessional(ctx, tenant.ID, state)
	if err != nil {
		return nil, err
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", state.Date+" "+state.Time, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid booking start %q %q: %w", state.Date, state.Time, err)
	}
	duration := svc.DurationMinutes
	if duration <= 0 {
		duration = defaultDurationMinutes
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	clientName := state.ClientName
	if clientName == "" {
		clientName = "Cliente"
	}

	booking := &models.Booking{
		ID:               uuid.New().String(),
		TenantID:         tenant.ID,
		ConversationID:   conversationID,
		ServiceID:        svc.ID,
		ServiceName:      svc.Name,
		ProfessionalID:   pro.ID,
		ProfessionalName: pro.FullName,
		Status:           models.BookingPending,
		PaymentStatus:    "pending",
		StartTime:        start,
		EndTime:          end,
		Price:            svc.Price,
		ClientName:       clientName,
		ClientPhone:      phone,
		Metadata:         state,
	}
	if err := e.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	e.scheduleExpiry(booking)

	logger.Info("hold created",
		zap.String("bookingId", booking.ID),
		zap.String("tenantId", tenant.ID),
		zap.String("service", svc.Name))
	return booking, nil
}

// scheduleExpiry enqueues the hold-expiry check. Best effort: a hold without
// an expiry task stays pending, it never blocks the turn.
func (e *Executor) scheduleExpiry(booking *models.Booking) {
	if e.queue == nil {
		return
	}
	delay := time.Duration(config.AppConfig.HoldExpiryMinutes) * time.Minute
	task, opts, err := tasks.NewHoldExpiryTask(models.HoldExpiryPayload{
		BookingID:      booking.ID,
		TenantID:       booking.TenantID,
		ConversationID: booking.ConversationID,
		Phone:          booking.ClientPhone,
	}, delay)
	if err == nil {
		_, err = e.queue.Enqueue(task, opts...)
	}
	if err != nil {
		utils.GetLogger().Warn("failed to schedule hold expiry",
			zap.String("bookingId", booking.ID), zap.Error(err))
	}
}

// CheckAvailability reports whether the professional is free for a default
// window starting at the given date and time.
func (e *Executor) CheckAvailability(ctx context.Context, tenantID, professionalID, date, timeOfDay string) (bool, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, time.Local)
	if err != nil {
		return false, fmt.Errorf("invalid availability window %q %q: %w", date, timeOfDay, err)
	}
	end := start.Add(defaultDurationMinutes * time.Minute)
	overlap, err := e.bookings.HasOverlap(ctx, tenantID, professionalID, start, end)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

// PaymentStatus returns the booking's payment status string.
func (e *Executor) PaymentStatus(ctx context.Context, bookingID string) (string, error) {
	bk, err := e.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	return bk.PaymentStatus, nil
}

// DepositPercent returns the tenant's deposit percentage, falling back to
// the global default.
func DepositPercent(tenant *models.Tenant) float64 {
	if tenant.Settings.DepositPercentage > 0 {
		return tenant.Settings.DepositPercentage
	}
	return config.AppConfig.DepositPercentDefault
}

// depositAmountCents converts a deposit percentage of a price into whole
// cents, rounded rather than truncated so amounts like half of R$33,30 come
// out as 1665 and not 1664.
func depositAmountCents(price, percent float64) int64 {
	return int64(math.Round(price * percent / 100 * 100))
}

// CreateCheckoutSession creates a deposit payment session for a hold. When
// the gateway is not configured outside production it degrades to a labelled
// mock session instead of failing mid-conversation.
func (e *Executor) CreateCheckoutSession(ctx context.Context, tenant *models.Tenant, bookingID string) (*models.CheckoutSession, error) {
	bk, err := e.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Price <= 0 {
		return nil, fmt.Errorf("booking %s has no price", bookingID)
	}

	percent := DepositPercent(tenant)
	amountCents := depositAmountCents(bk.Price, percent)

	if config.AppConfig.StripeKey == "" {
		if config.IsProduction() {
			return nil, fmt.Errorf("stripe key not configured")
		}
		utils.GetLogger().Warn("stripe not configured, issuing mock checkout",
			zap.String("bookingId", bookingID))
		return &models.CheckoutSession{
			SessionID: "mock_" + uuid.New().String(),
			URL:       fmt.Sprintf("%s/booking/mock-checkout?booking_id=%s", config.AppConfig.AppURL, bookingID),
			Mock:      true,
		}, nil
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("brl"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("%s - Entrada %.0f%%", bk.ServiceName, percent)),
						Description: stripe.String(fmt.Sprintf("Entrada de %.0f%% para agendamento com %s", percent, tenant.Name)),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(config.AppConfig.AppURL + "/booking/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(config.AppConfig.AppURL + "/booking/cancel"),
	}
	params.AddMetadata("booking_id", bk.ID)
	params.AddMetadata("tenant_id", bk.TenantID)
	params.AddMetadata("client_name", bk.ClientName)

	session, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &models.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// ConfirmBooking transitions a hold to confirmed, records the payment and
// fans out push notifications. It reports whether this call performed the
// transition; repeated gateway deliveries come back false. Notification
// failures are logged, never propagated: confirmation is the source of
// truth, notification is best effort.
func (e *Executor) ConfirmBooking(ctx context.Context, bookingID, stripeSessionID string, amountCents int64, currency string) (*models.Booking, bool, error) {
	logger := utils.GetLogger()

	confirmed, err := e.bookings.ConfirmBooking(ctx, bookingID)
	if err != nil {
		return nil, false, err
	}

	bk, err := e.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, confirmed, err
	}

	if stripeSessionID != "" {
		payment := &models.Payment{
			BookingID:       bookingID,
			StripeSessionID: stripeSessionID,
			AmountCents:     amountCents,
			Currency:        currency,
			Status:          "paid",
		}
		if err := e.bookings.InsertPayment(ctx, payment); err != nil {
			if err == bookingRepo.ErrDuplicatePayment {
				logger.Info("payment already recorded", zap.String("sessionId", stripeSessionID))
			} else {
				logger.Error("failed to record payment",
					zap.String("bookingId", bookingID), zap.Error(err))
			}
		}
	}

	if confirmed && e.notifier != nil {
		if err := e.notifier.NotifyBookingConfirmed(ctx, bk); err != nil {
			logger.Warn("confirmation notification failed",
				zap.String("bookingId", bookingID), zap.Error(err))
		}
	}

	return bk, confirmed, nil
}
