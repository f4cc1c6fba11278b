package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	conversationRepo "zapagenda/database/repository/conversation"
	"zapagenda/models"
	"zapagenda/services/assistant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubTenants struct {
	tenant *models.Tenant
}

func (s *stubTenants) GetByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return s.tenant, nil
}

func (s *stubTenants) GetByInstanceID(ctx context.Context, instanceID string) (*models.Tenant, error) {
	if s.tenant != nil && s.tenant.WhatsAppInstanceID == instanceID {
		return s.tenant, nil
	}
	return nil, nil
}

func (s *stubTenants) UpdateSettings(ctx context.Context, tenantID string, settings models.Settings) error {
	return nil
}

func (s *stubTenants) ListServices(ctx context.Context, tenantID string) ([]models.Service, error) {
	return nil, nil
}

func (s *stubTenants) ListProfessionals(ctx context.Context, tenantID string) ([]models.Professional, error) {
	return nil, nil
}

func (s *stubTenants) GetService(ctx context.Context, tenantID, serviceID string) (*models.Service, error) {
	return nil, nil
}

func (s *stubTenants) GetProfessional(ctx context.Context, tenantID, professionalID string) (*models.Professional, error) {
	return nil, nil
}

func (s *stubTenants) FindServiceByName(ctx context.Context, tenantID, name string) (*models.Service, error) {
	return nil, nil
}

func (s *stubTenants) FindProfessionalByName(ctx context.Context, tenantID, name string) (*models.Professional, error) {
	return nil, nil
}

func (s *stubTenants) CreateService(ctx context.Context, svc *models.Service) error { return nil }

func (s *stubTenants) CreateProfessional(ctx context.Context, pro *models.Professional) error {
	return nil
}

type stubConvos struct {
	duplicate   bool
	lastOut     *models.ConversationLog
	logs        []models.ConversationLog
	inboundSeen int
}

func (s *stubConvos) UpsertByPhone(ctx context.Context, tenantID, phone string) (*models.Conversation, error) {
	return &models.Conversation{ID: "conv-1", TenantID: tenantID, Phone: phone}, nil
}

func (s *stubConvos) GetByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	return &models.Conversation{ID: conversationID}, nil
}

func (s *stubConvos) InsertInbound(ctx context.Context, msg *models.InboundMessage) error {
	if s.duplicate {
		return conversationRepo.ErrDuplicateMessage
	}
	s.inboundSeen++
	return nil
}

func (s *stubConvos) LoadState(ctx context.Context, conversationID string) (models.BookingState, string, error) {
	return models.BookingState{}, "", nil
}

func (s *stubConvos) SaveState(ctx context.Context, conversationID string, state models.BookingState, lastQuestionKey string) error {
	return nil
}

func (s *stubConvos) AppendLog(ctx context.Context, entry *models.ConversationLog) error {
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *stubConvos) RecentLogs(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error) {
	return s.logs, nil
}

func (s *stubConvos) LastOutbound(ctx context.Context, conversationID string) (*models.ConversationLog, error) {
	return s.lastOut, nil
}

type stubRunner struct {
	reply string
	err   error
	calls int
	text  string
}

func (s *stubRunner) RunTurn(ctx context.Context, tenant *models.Tenant, conversationID, phone, incomingText string) (string, error) {
	s.calls++
	s.text = incomingText
	return s.reply, s.err
}

type stubSender struct {
	sent []string
}

func (s *stubSender) SendText(ctx context.Context, instanceID, phone, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) TranscribeBase64(ctx context.Context, audio string) (string, error) {
	return s.text, s.err
}

type webhookFixture struct {
	convos *stubConvos
	runner *stubRunner
	sender *stubSender
	audio  *stubTranscriber
}

func setupWebhook(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := &webhookFixture{
		convos: &stubConvos{},
		runner: &stubRunner{reply: "Fechou. Qual serviço você quer?"},
		sender: &stubSender{},
		audio:  &stubTranscriber{},
	}
	TenantRepo = &stubTenants{tenant: &models.Tenant{ID: "t1", Name: "Barbearia do Zé", WhatsAppInstanceID: "inst-1"}}
	ConvoRepo = fx.convos
	Orchestrator = fx.runner
	Sender = fx.sender
	Transcriber = fx.audio
	return fx
}

func textEvent(text string) models.WebhookEvent {
	return models.WebhookEvent{
		Event:    "messages.upsert",
		Instance: "inst-1",
		Data: models.WebhookData{
			Key: models.WebhookKey{
				RemoteJid: "5511999@s.whatsapp.net",
				ID:        "MSG-1",
			},
			Message: models.WebhookMessage{Conversation: text},
		},
	}
}

func postWebhook(t *testing.T, event any) (int, map[string]any) {
	t.Helper()
	router := gin.New()
	router.POST("/api/webhooks/whatsapp", WhatsAppWebhookHandler)

	var body bytes.Buffer
	require.NoError(t, json.NewEncoder(&body).Encode(event))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestWebhookProcessesTextMessage(t *testing.T) {
	fx := setupWebhook(t)

	code, resp := postWebhook(t, textEvent("quero cortar o cabelo"))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "processed", resp["status"])
	require.Equal(t, 1, fx.runner.calls)
	require.Equal(t, "quero cortar o cabelo", fx.runner.text)
	require.Equal(t, []string{"Fechou. Qual serviço você quer?"}, fx.sender.sent)

	// Both directions hit the transcript, user first.
	require.Len(t, fx.convos.logs, 2)
	require.Equal(t, models.SenderUser, fx.convos.logs[0].Sender)
	require.Equal(t, models.SenderAI, fx.convos.logs[1].Sender)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	fx := setupWebhook(t)
	event := textEvent("oi")
	event.Event = "connection.update"

	code, resp := postWebhook(t, event)

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ignored", resp["status"])
	require.Zero(t, fx.runner.calls)
}

func TestWebhookIgnoresOwnAndGroupMessages(t *testing.T) {
	fx := setupWebhook(t)

	own := textEvent("oi")
	own.Data.Key.FromMe = true
	_, resp := postWebhook(t, own)
	require.Equal(t, "ignored", resp["status"])

	group := textEvent("oi")
	group.Data.Key.RemoteJid = "123456@g.us"
	_, resp = postWebhook(t, group)
	require.Equal(t, "ignored", resp["status"])

	require.Zero(t, fx.runner.calls)
}

func TestWebhookUnknownInstance(t *testing.T) {
	fx := setupWebhook(t)
	event := textEvent("oi")
	event.Instance = "inst-unknown"

	code, resp := postWebhook(t, event)

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "unknown_instance", resp["status"])
	require.Zero(t, fx.runner.calls)
}

func TestWebhookDuplicateDeliverySkipsTurn(t *testing.T) {
	fx := setupWebhook(t)
	fx.convos.duplicate = true

	code, resp := postWebhook(t, textEvent("quero cortar"))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "duplicate", resp["status"])
	require.Zero(t, fx.runner.calls)
	require.Empty(t, fx.sender.sent)
}

func TestWebhookDropsEchoedOutbound(t *testing.T) {
	fx := setupWebhook(t)
	fx.convos.lastOut = &models.ConversationLog{
		Sender:    models.SenderAI,
		Content:   "Fechou. Qual serviço você quer?",
		CreatedAt: time.Now().Add(-5 * time.Second),
	}

	_, resp := postWebhook(t, textEvent("Fechou. Qual serviço você quer?"))

	require.Equal(t, "echo", resp["status"])
	require.Zero(t, fx.runner.calls)
	require.Zero(t, fx.convos.inboundSeen)
}

func TestWebhookStaleOutboundIsNotAnEcho(t *testing.T) {
	fx := setupWebhook(t)
	fx.convos.lastOut = &models.ConversationLog{
		Sender:    models.SenderAI,
		Content:   "Fechou. Qual serviço você quer?",
		CreatedAt: time.Now().Add(-5 * time.Minute),
	}

	_, resp := postWebhook(t, textEvent("Fechou. Qual serviço você quer?"))

	require.Equal(t, "processed", resp["status"])
	require.Equal(t, 1, fx.runner.calls)
}

func TestWebhookBusyTurn(t *testing.T) {
	fx := setupWebhook(t)
	fx.runner.err = assistant.ErrTurnBusy
	fx.runner.reply = ""

	_, resp := postWebhook(t, textEvent("oi"))

	require.Equal(t, "busy", resp["status"])
	require.Empty(t, fx.sender.sent)
}

func TestWebhookTranscribesVoiceNote(t *testing.T) {
	fx := setupWebhook(t)
	fx.audio.text = "quero cortar o cabelo"

	event := textEvent("")
	event.Data.Message = models.WebhookMessage{
		AudioMessage: &models.AudioMessage{Mimetype: "audio/ogg; codecs=opus", Seconds: 3},
		Base64:       "b2dnLWRhdGE=",
	}

	_, resp := postWebhook(t, event)

	require.Equal(t, "processed", resp["status"])
	require.Equal(t, "quero cortar o cabelo", fx.runner.text)
}

func TestWebhookTranscriptionFailure(t *testing.T) {
	fx := setupWebhook(t)
	fx.audio.err = errors.New("speech unavailable")

	event := textEvent("")
	event.Data.Message = models.WebhookMessage{
		AudioMessage: &models.AudioMessage{Mimetype: "audio/ogg"},
		Base64:       "b2dnLWRhdGE=",
	}

	_, resp := postWebhook(t, event)

	require.Equal(t, "audio_failed", resp["status"])
	require.Zero(t, fx.runner.calls)
}

func TestWebhookEmptyPayloadIgnored(t *testing.T) {
	fx := setupWebhook(t)
	event := textEvent("")

	_, resp := postWebhook(t, event)

	require.Equal(t, "ignored_empty", resp["status"])
	require.Zero(t, fx.runner.calls)
}

func TestWebhookRejectsUnparseablePayload(t *testing.T) {
	setupWebhook(t)
	router := gin.New()
	router.POST("/api/webhooks/whatsapp", WhatsAppWebhookHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
