package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"zapagenda/database"
	"zapagenda/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConversationRepo implements ConversationRepository using MongoDB.
type MongoConversationRepo struct {
	conversationColl *mongo.Collection
	inboundColl      *mongo.Collection
	stateColl        *mongo.Collection
	logColl          *mongo.Collection
}

// NewMongoConversationRepo constructs a new instance of MongoConversationRepo.
func NewMongoConversationRepo() *MongoConversationRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoConversationRepo{
		conversationColl: db.Collection("conversations"),
		inboundColl:      db.Collection("inbound_messages"),
		stateColl:        db.Collection("booking_state"),
		logColl:          db.Collection("conversation_logs"),
	}
}

// UpsertByPhone creates the conversation on first contact and returns the
// existing one afterwards.
func (repo *MongoConversationRepo) UpsertByPhone(ctx context.Context, tenantID, phone string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{"tenant_id": tenantID, "phone": phone}
	update := bson.M{
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"id":         uuid.New().String(),
			"tenant_id":  tenantID,
			"phone":      phone,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var convo models.Conversation
	if err := repo.conversationColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&convo); err != nil {
		return nil, fmt.Errorf("error upserting conversation for %s: %w", phone, err)
	}
	return &convo, nil
}

func (repo *MongoConversationRepo) GetByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var convo models.Conversation
	if err := repo.conversationColl.FindOne(ctx, bson.M{"id": conversationID}).Decode(&convo); err != nil {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}
	return &convo, nil
}

func (repo *MongoConversationRepo) InsertInbound(ctx context.Context, msg *models.InboundMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if _, err := repo.inboundColl.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("error inserting inbound message: %w", err)
	}
	return nil
}

func (repo *MongoConversationRepo) LoadState(ctx context.Context, conversationID string) (models.BookingState, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.BookingStateRecord
	err := repo.stateColl.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return models.BookingState{}, "", nil
	}
	if err != nil {
		return models.BookingState{}, "", fmt.Errorf("error loading booking state: %w", err)
	}
	return rec.State, rec.LastQuestionKey, nil
}

// SaveState is a full upsert; callers merge before saving.
func (repo *MongoConversationRepo) SaveState(ctx context.Context, conversationID string, state models.BookingState, lastQuestionKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rec := models.BookingStateRecord{
		ConversationID:  conversationID,
		State:           state,
		LastQuestionKey: lastQuestionKey,
		UpdatedAt:       time.Now(),
	}
	filter := bson.M{"conversation_id": conversationID}
	update := bson.M{"$set": rec}
	opts := options.Update().SetUpsert(true)
	if _, err := repo.stateColl.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error saving booking state: %w", err)
	}
	return nil
}

func (repo *MongoConversationRepo) AppendLog(ctx context.Context, entry *models.ConversationLog) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if _, err := repo.logColl.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("error appending conversation log: %w", err)
	}
	return nil
}

// RecentLogs fetches most-recent-first then reverses to chronological order
// for the model context window.
func (repo *MongoConversationRepo) RecentLogs(ctx context.Context, conversationID string, limit int) ([]models.ConversationLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := repo.logColl.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching conversation logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.ConversationLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("error decoding conversation logs: %w", err)
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

func (repo *MongoConversationRepo) LastOutbound(ctx context.Context, conversationID string) (*models.ConversationLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"conversation_id": conversationID, "sender": models.SenderAI}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var entry models.ConversationLog
	err := repo.logColl.FindOne(ctx, filter, opts).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching last outbound log: %w", err)
	}
	return &entry, nil
}
