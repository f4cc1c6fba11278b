package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"zapagenda/config"
	bookingRepo "zapagenda/database/repository/booking"
	tenantRepo "zapagenda/database/repository/tenant"
	"zapagenda/models"
	"zapagenda/services/messaging"
	"zapagenda/services/notification"
	"zapagenda/services/tasks"
	"zapagenda/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitHoldExpiryWorker runs the async worker that abandons unpaid holds.
func InitHoldExpiryWorker(bookings bookingRepo.BookingRepository, tenants tenantRepo.TenantRepository, sender messaging.Sender, notifier notification.NotificationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeHoldExpiry, handleHoldExpiry(bookings, tenants, sender, notifier))

	go func() {
		log.Println("[HoldExpiryWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[HoldExpiryWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[HoldExpiryWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// handleHoldExpiry abandons the hold if it is still pending when the task
// fires. A booking that was confirmed or already abandoned in the meantime
// is left alone.
func handleHoldExpiry(bookings bookingRepo.BookingRepository, tenants tenantRepo.TenantRepository, sender messaging.Sender, notifier notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()

		var p models.HoldExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("hold expiry: invalid payload", zap.Error(err))
			return err
		}

		abandoned, err := bookings.AbandonBooking(ctx, p.BookingID)
		if err != nil {
			logger.Error("hold expiry: abandon failed", zap.String("bookingId", p.BookingID), zap.Error(err))
			return err
		}
		if !abandoned {
			logger.Debug("hold expiry: booking no longer pending", zap.String("bookingId", p.BookingID))
			return nil
		}

		logger.Info("hold expired", zap.String("bookingId", p.BookingID), zap.String("tenantId", p.TenantID))

		// Best effort from here: the abandonment itself already stuck.
		tenant, err := tenants.GetByID(ctx, p.TenantID)
		if err == nil && tenant != nil && p.Phone != "" {
			msg := "Sua pré-reserva expirou porque o sinal não foi pago a tempo. Se ainda quiser agendar, é só me chamar de novo!"
			if err := sender.SendText(ctx, tenant.WhatsAppInstanceID, p.Phone, msg); err != nil {
				logger.Warn("hold expiry: counterparty notice failed", zap.String("bookingId", p.BookingID), zap.Error(err))
			}
		}

		if notifier != nil {
			if bk, err := bookings.GetBookingByID(ctx, p.BookingID); err == nil {
				if err := notifier.NotifyHoldAbandoned(ctx, bk); err != nil {
					logger.Warn("hold expiry: owner notification failed", zap.String("bookingId", p.BookingID), zap.Error(err))
				}
			}
		}
		return nil
	}
}
