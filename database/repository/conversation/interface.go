package conversationRepo

import (
	"context"
	"errors"

	"zapagenda/models"
)

// ErrDuplicateMessage is returned when an inbound message with the same
// (provider, provider_message_id) was already recorded. Callers treat it as
// "already processed" and skip the orchestrator.
var ErrDuplicateMessage = errors.New("inbound message already recorded")

// ConversationRepository persists conversations, the dedupe log, the booking
// state record and the transcript.
type ConversationRepository interface {
	UpsertByPhone(ctx context.Context, tenantID, phone string) (*models.Conversation, error)
	GetByID(ctx context.Context, conversationID string) (*models.Conversation, error)

	// InsertInbound is the idempotency boundary: a duplicate key yields
	// ErrDuplicateMessage.
	InsertInbound(ctx context.Context, msg *models.InboundMessage) error

	LoadState(ctx context.Context, conversationID string) (models.BookingState, string, error)
	SaveState(ctx context.Context, conversationID string, state models.BookingState, lastQuestionKey string) error

	AppendLog(ctx context.Context, entry *models.ConversationLog) error
	// RecentLogs returns up to limit entries in chronological order.
	RecentLogs(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error)
	// LastOutbound returns the most recent AI-sent entry, or nil.
	LastOutbound(ctx context.Context, conversationID string) (*models.ConversationLog, error)
}
