package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	conversationRepo "zapagenda/database/repository/conversation"
	tenantRepo "zapagenda/database/repository/tenant"
	"zapagenda/models"
	"zapagenda/services/assistant"
	"zapagenda/services/messaging"
	"zapagenda/services/transcription"
	"zapagenda/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// echoWindow is the trailing window for the anti-echo guard.
const echoWindow = 60 * time.Second

// TurnRunner is the orchestrator surface ingestion needs.
type TurnRunner interface {
	RunTurn(ctx context.Context, tenant *models.Tenant, conversationID, phone, incomingText string) (string, error)
}

var (
	TenantRepo   tenantRepo.TenantRepository
	ConvoRepo    conversationRepo.ConversationRepository
	Orchestrator TurnRunner
	Sender       messaging.Sender
	Transcriber  transcription.Transcriber
)

// WhatsAppWebhookHandler ingests one messaging-gateway event. Every terminal
// branch answers 200 with a status tag; the gateway must never be provoked
// into a retry storm over a recoverable condition.
func WhatsAppWebhookHandler(c *gin.Context) {
	logger := utils.GetLogger()
	ctx := c.Request.Context()

	var event models.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unparseable payload"})
		return
	}

	if event.Event != "messages.upsert" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ignored"})
		return
	}

	key := event.Data.Key
	if key.FromMe || strings.Contains(key.RemoteJid, "@g.us") || strings.Contains(key.RemoteJid, "status") {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ignored"})
		return
	}

	text := event.Data.Message.Text()
	if text == "" && event.Data.Message.AudioMessage != nil && event.Data.Message.Base64 != "" {
		transcript, err := Transcriber.TranscribeBase64(ctx, event.Data.Message.Base64)
		if err != nil {
			logger.Warn("audio transcription failed", zap.String("messageId", key.ID), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"ok": true, "status": "audio_failed"})
			return
		}
		text = transcript
	}

	phone := key.RemoteJid
	instanceID := event.InstanceID()
	if phone == "" || text == "" || key.ID == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ignored_empty"})
		return
	}

	tenant, err := TenantRepo.GetByInstanceID(ctx, instanceID)
	if err != nil || tenant == nil {
		logger.Warn("no tenant for instance", zap.String("instanceId", instanceID))
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "unknown_instance"})
		return
	}

	convo, err := ConvoRepo.UpsertByPhone(ctx, tenant.ID, phone)
	if err != nil {
		logger.Error("conversation upsert failed", zap.String("phone", phone), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": false, "status": "error"})
		return
	}

	// Anti-echo: some gateways loop the operator's own sent message back as
	// inbound. An exact match against the last outbound inside the window is
	// dropped before it reaches the dedupe log.
	if last, err := ConvoRepo.LastOutbound(ctx, convo.ID); err == nil && last != nil {
		if last.Content == text && time.Since(last.CreatedAt) < echoWindow {
			logger.Debug("dropping echoed outbound", zap.String("conversationId", convo.ID))
			c.JSON(http.StatusOK, gin.H{"ok": true, "status": "echo"})
			return
		}
	}

	err = ConvoRepo.InsertInbound(ctx, &models.InboundMessage{
		ConversationID:    convo.ID,
		Provider:          "evolution",
		ProviderMessageID: key.ID,
		Body:              text,
	})
	if err != nil {
		if err == conversationRepo.ErrDuplicateMessage {
			c.JSON(http.StatusOK, gin.H{"ok": true, "status": "duplicate"})
			return
		}
		logger.Error("inbound insert failed", zap.String("messageId", key.ID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": false, "status": "error"})
		return
	}

	if err := ConvoRepo.AppendLog(ctx, &models.ConversationLog{
		ConversationID: convo.ID,
		Sender:         models.SenderUser,
		Content:        text,
	}); err != nil {
		logger.Warn("transcript append failed", zap.String("conversationId", convo.ID), zap.Error(err))
	}

	reply, err := Orchestrator.RunTurn(ctx, tenant, convo.ID, phone, text)
	if err != nil {
		if err == assistant.ErrTurnBusy {
			c.JSON(http.StatusOK, gin.H{"ok": true, "status": "busy"})
			return
		}
		logger.Error("turn failed", zap.String("conversationId", convo.ID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": false, "status": "error"})
		return
	}

	if strings.TrimSpace(reply) != "" {
		if err := Sender.SendText(ctx, instanceID, phone, reply); err != nil {
			logger.Error("reply dispatch failed", zap.String("conversationId", convo.ID), zap.Error(err))
		} else if err := ConvoRepo.AppendLog(ctx, &models.ConversationLog{
			ConversationID: convo.ID,
			Sender:         models.SenderAI,
			Content:        reply,
		}); err != nil {
			logger.Warn("transcript append failed", zap.String("conversationId", convo.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "processed"})
}
