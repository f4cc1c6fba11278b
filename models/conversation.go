package models

import "time"

// Conversation is a (tenant, counterparty phone) pair. Upserted on first
// contact, never deleted.
type Conversation struct {
	ID        string    `bson:"id" json:"id"`
	TenantID  string    `bson:"tenant_id" json:"tenantId"`
	Phone     string    `bson:"phone" json:"phone"` // remoteJid, e.g. 5511...@s.whatsapp.net
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// InboundMessage is the append-only dedupe log. The unique index on
// (provider, provider_message_id) is the idempotency boundary for webhook
// redelivery.
type InboundMessage struct {
	ID                string    `bson:"id" json:"id"`
	ConversationID    string    `bson:"conversation_id" json:"conversationId"`
	Provider          string    `bson:"provider" json:"provider"`
	ProviderMessageID string    `bson:"provider_message_id" json:"providerMessageId"`
	Body              string    `bson:"body" json:"body"`
	CreatedAt         time.Time `bson:"created_at" json:"createdAt"`
}

// Transcript senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// ConversationLog is one transcript entry, either direction. Used for model
// context and the anti-echo guard only; BookingState is authoritative.
type ConversationLog struct {
	ID             string    `bson:"id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	Sender         string    `bson:"sender" json:"sender"` // user | ai
	Content        string    `bson:"content" json:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// LastOffer records the options most recently shown to the counterparty, in
// display order, so a bare "2" on the next turn resolves against what they
// actually saw. IDs and labels are positionally aligned. A new offer for a
// key replaces that key's lists wholesale.
type LastOffer struct {
	ServiceIDs         []string `bson:"service_ids,omitempty" json:"service_ids,omitempty"`
	ServiceLabels      []string `bson:"service_labels,omitempty" json:"service_labels,omitempty"`
	ProfessionalIDs    []string `bson:"professional_ids,omitempty" json:"professional_ids,omitempty"`
	ProfessionalLabels []string `bson:"professional_labels,omitempty" json:"professional_labels,omitempty"`
}

// ServiceOptions returns the recorded service menu, nil-safe.
func (o *LastOffer) ServiceOptions() ([]string, []string) {
	if o == nil {
		return nil, nil
	}
	return o.ServiceIDs, o.ServiceLabels
}

// ProfessionalOptions returns the recorded professional menu, nil-safe.
func (o *LastOffer) ProfessionalOptions() ([]string, []string) {
	if o == nil {
		return nil, nil
	}
	return o.ProfessionalIDs, o.ProfessionalLabels
}

// Service keys: the closed coarse-intent vocabulary.
const (
	ServiceKeyCorte       = "corte"
	ServiceKeyBarba       = "barba"
	ServiceKeySobrancelha = "sobrancelha"
	ServiceKeyHidratacao  = "hidratacao"
)

// BookingState is the per-conversation slot-filling record, overwritten in
// place every turn. Empty string means "not filled yet"; clearing a filled
// slot only happens through an explicit reset.
type BookingState struct {
	ServiceID         string     `bson:"service_id,omitempty" json:"service_id,omitempty"`
	ServiceName       string     `bson:"service_name,omitempty" json:"service_name,omitempty"`
	ServiceKey        string     `bson:"service_key,omitempty" json:"service_key,omitempty"`
	ProfessionalID    string     `bson:"professional_id,omitempty" json:"professional_id,omitempty"` // concrete ID or "any"
	ProfessionalName  string     `bson:"professional_name,omitempty" json:"professional_name,omitempty"`
	Date              string     `bson:"date,omitempty" json:"date,omitempty"` // YYYY-MM-DD
	Time              string     `bson:"time,omitempty" json:"time,omitempty"` // HH:MM
	ClientName        string     `bson:"client_name,omitempty" json:"client_name,omitempty"`
	ClientPhone       string     `bson:"client_phone,omitempty" json:"client_phone,omitempty"`
	HoldBookingID     string     `bson:"hold_booking_id,omitempty" json:"hold_booking_id,omitempty"`
	PaymentID         string     `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	DepositPercentage float64    `bson:"deposit_percentage,omitempty" json:"deposit_percentage,omitempty"`
	LastOffer         *LastOffer `bson:"last_offer,omitempty" json:"last_offer,omitempty"`
}

// Last-question keys for disambiguating bare numeric replies.
const (
	QuestionService      = "service"
	QuestionProfessional = "professional"
)

// BookingStateRecord is the persisted wrapper: state plus the key of the slot
// we last asked about.
type BookingStateRecord struct {
	ConversationID  string       `bson:"conversation_id" json:"conversationId"`
	State           BookingState `bson:"state" json:"state"`
	LastQuestionKey string       `bson:"last_question_key,omitempty" json:"lastQuestionKey,omitempty"`
	UpdatedAt       time.Time    `bson:"updated_at" json:"updatedAt"`
}
