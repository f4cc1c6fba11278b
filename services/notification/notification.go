package notification

import (
	"context"
	"fmt"

	tenantRepo "zapagenda/database/repository/tenant"
	"zapagenda/models"
	"zapagenda/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// NotificationService sends FCM pushes to the tenant side of a booking.
type NotificationService interface {
	// NotifyBookingConfirmed alerts the assigned professional and the tenant
	// owners that a deposit came in.
	NotifyBookingConfirmed(ctx context.Context, booking *models.Booking) error
	// NotifyHoldAbandoned tells the tenant owners that an unpaid hold expired.
	NotifyHoldAbandoned(ctx context.Context, booking *models.Booking) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	tenants tenantRepo.TenantRepository
}

func NewDefaultNotificationService(tenants tenantRepo.TenantRepository) (*DefaultNotificationService, error) {
	if tenants == nil {
		return nil, fmt.Errorf("notification service initialization error: tenant repository is nil")
	}
	return &DefaultNotificationService{tenants: tenants}, nil
}

func (s *DefaultNotificationService) NotifyBookingConfirmed(ctx context.Context, booking *models.Booking) error {
	title := "Pagamento confirmado"
	body := fmt.Sprintf("%s: %s em %s",
		booking.ClientName, booking.ServiceName, booking.StartTime.Format("02/01 15:04"))
	data := map[string]string{
		"bookingId": booking.ID,
		"kind":      "booking_confirmed",
	}
	return s.fanOut(ctx, booking, title, body, data)
}

func (s *DefaultNotificationService) NotifyHoldAbandoned(ctx context.Context, booking *models.Booking) error {
	title := "Reserva expirada"
	body := fmt.Sprintf("%s não pagou o sinal de %s em %s",
		booking.ClientName, booking.ServiceName, booking.StartTime.Format("02/01 15:04"))
	data := map[string]string{
		"bookingId": booking.ID,
		"kind":      "hold_abandoned",
	}
	return s.fanOut(ctx, booking, title, body, data)
}

// fanOut pushes to the assigned professional plus every tenant owner token.
// Individual send failures are logged and counted, not propagated per token;
// only a total failure is returned.
func (s *DefaultNotificationService) fanOut(ctx context.Context, booking *models.Booking, title, body string, data map[string]string) error {
	logger := utils.GetLogger()

	tokens := []string{}
	if pro, err := s.tenants.GetProfessional(ctx, booking.TenantID, booking.ProfessionalID); err == nil && pro != nil && pro.FCMToken != "" {
		tokens = append(tokens, pro.FCMToken)
	}
	if tenant, err := s.tenants.GetByID(ctx, booking.TenantID); err == nil && tenant != nil {
		tokens = append(tokens, tenant.OwnerFCMTokens...)
	}
	if len(tokens) == 0 {
		logger.Debug("no FCM tokens registered for tenant", zap.String("tenantId", booking.TenantID))
		return nil
	}

	sent := 0
	for _, token := range tokens {
		msg := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		}
		if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
			logger.Warn("FCM send failed", zap.String("bookingId", booking.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("all FCM sends failed for booking %s", booking.ID)
	}
	return nil
}
