package models

// WebhookEvent is the inbound messaging-gateway payload (Evolution API shape).
// Only the fields ingestion needs are mapped.
type WebhookEvent struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Sender   string      `json:"sender"`
	Data     WebhookData `json:"data"`
}

// WebhookData is the nested message-data object.
type WebhookData struct {
	Key     WebhookKey     `json:"key"`
	Message WebhookMessage `json:"message"`
}

// WebhookKey identifies the message and its counterparty.
type WebhookKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// WebhookMessage carries the possible content variants.
type WebhookMessage struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	AudioMessage        *AudioMessage        `json:"audioMessage,omitempty"`
	Base64              string               `json:"base64,omitempty"`
}

// ExtendedTextMessage wraps quoted/linked text messages.
type ExtendedTextMessage struct {
	Text string `json:"text"`
}

// AudioMessage marks a voice note; the gateway delivers its media as base64
// alongside when webhook_base64 is enabled.
type AudioMessage struct {
	URL      string `json:"url,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
	Seconds  int    `json:"seconds,omitempty"`
}

// Text returns the plain text content of the message, if any.
func (m WebhookMessage) Text() string {
	if m.Conversation != "" {
		return m.Conversation
	}
	if m.ExtendedTextMessage != nil {
		return m.ExtendedTextMessage.Text
	}
	return ""
}

// InstanceID returns the channel identifier used to resolve the tenant.
func (e WebhookEvent) InstanceID() string {
	if e.Instance != "" {
		return e.Instance
	}
	return e.Sender
}

// HoldExpiryPayload is the asynq task payload for the hold-expiry worker.
type HoldExpiryPayload struct {
	BookingID      string `json:"bookingId"`
	TenantID       string `json:"tenantId"`
	ConversationID string `json:"conversationId"`
	Phone          string `json:"phone"`
}
