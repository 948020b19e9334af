package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// MessageRepo implements interfaces.MessageStore over the conversations
// and messages collections.
type MessageRepo struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewMessageRepo creates the message repository.
func NewMessageRepo(m *Mongo) *MessageRepo {
	return &MessageRepo{
		conversations: m.db.Collection(conversationsCollection),
		messages:      m.db.Collection(messagesCollection),
	}
}

func (r *MessageRepo) GetConversationByParticipants(ctx context.Context, a, b primitive.ObjectID) (*types.Conversation, error) {
	filter := bson.M{"participants": bson.M{"$all": []primitive.ObjectID{a, b}}}

	var conv types.Conversation
	err := r.conversations.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, interfaces.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

func (r *MessageRepo) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	res, err := r.conversations.InsertOne(ctx, conv)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid
	}
	return nil
}

func (r *MessageRepo) UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, last types.LastMessage) error {
	update := bson.M{"$set": bson.M{
		"last_message": last,
		"updated_at":   time.Now(),
	}}
	res, err := r.conversations.UpdateByID(ctx, convID, update)
	if err != nil {
		return fmt.Errorf("failed to update last message: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrConversationNotFound
	}
	return nil
}

func (r *MessageRepo) CreateMessage(ctx context.Context, msg *types.Message) error {
	msg.CreatedAt = time.Now()

	res, err := r.messages.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

func (r *MessageRepo) ListMessages(ctx context.Context, convID primitive.ObjectID) ([]*types.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"conversation_id": convID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []*types.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepo) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]*types.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var convs []*types.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return convs, nil
}

// MarkConversationSeen flips every unseen message in the conversation to
// seen, then marks the conversation's last-message preview seen. The two
// writes are not transactional; the message update runs first so a reader
// never observes a seen preview over unseen messages.
func (r *MessageRepo) MarkConversationSeen(ctx context.Context, convID primitive.ObjectID) error {
	_, err := r.messages.UpdateMany(ctx,
		bson.M{"conversation_id": convID, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark messages seen: %w", err)
	}

	_, err = r.conversations.UpdateByID(ctx, convID,
		bson.M{"$set": bson.M{"last_message.seen": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark conversation seen: %w", err)
	}
	return nil
}
