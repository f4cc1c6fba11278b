package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"zapagenda/config"
	"zapagenda/services/booking"
	"zapagenda/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

var Executor *booking.Executor

// StripeWebhookHandler is the second entry point into the booking lifecycle:
// it confirms a hold when its deposit checkout completes. Repeated delivery
// of the same event is harmless; the confirmation transition and the payment
// insert are both idempotent.
func StripeWebhookHandler(c *gin.Context) {
	logger := utils.GetLogger()
	ctx := c.Request.Context()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		logger.Warn("stripe signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook error"})
		return
	}

	if event.Type != "checkout.session.completed" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		logger.Error("failed to decode checkout session", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	bookingID := session.Metadata["booking_id"]
	if bookingID == "" {
		logger.Warn("checkout session without booking_id metadata", zap.String("sessionId", session.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	bk, confirmed, err := Executor.ConfirmBooking(ctx, bookingID, session.ID, session.AmountTotal, string(session.Currency))
	if err != nil {
		logger.Error("booking confirmation failed",
			zap.String("bookingId", bookingID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	// Only the delivery that performed the transition messages the
	// counterparty, so redeliveries cannot storm them.
	if confirmed {
		if tenant, err := TenantRepo.GetByID(ctx, bk.TenantID); err == nil && tenant != nil {
			msg := "✅ Pagamento confirmado, " + bk.ClientName + "!\n\nSeu agendamento para *" + bk.ServiceName +
				"* com *" + bk.ProfessionalName + "* em *" + bk.StartTime.Format("02/01/2006 15:04") + "* está garantido."
			if err := Sender.SendText(ctx, tenant.WhatsAppInstanceID, bk.ClientPhone, msg); err != nil {
				logger.Warn("confirmation message failed",
					zap.String("bookingId", bookingID), zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
