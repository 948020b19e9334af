package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/config"
	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// fakeMessageStore records seen-acknowledgment calls; the gateway uses
// nothing else from the message store.
type fakeMessageStore struct {
	mu         sync.Mutex
	seenCalls  []primitive.ObjectID
	markSeenFn func(convID primitive.ObjectID) error
}

func (s *fakeMessageStore) MarkConversationSeen(ctx context.Context, convID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seenCalls = append(s.seenCalls, convID)
	if s.markSeenFn != nil {
		return s.markSeenFn(convID)
	}
	return nil
}

func (s *fakeMessageStore) GetConversationByParticipants(ctx context.Context, a, b primitive.ObjectID) (*types.Conversation, error) {
	return nil, interfaces.ErrConversationNotFound
}

func (s *fakeMessageStore) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	return nil
}

func (s *fakeMessageStore) UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, last types.LastMessage) error {
	return nil
}

func (s *fakeMessageStore) CreateMessage(ctx context.Context, msg *types.Message) error {
	return nil
}

func (s *fakeMessageStore) ListMessages(ctx context.Context, convID primitive.ObjectID) ([]*types.Message, error) {
	return nil, nil
}

func (s *fakeMessageStore) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]*types.Conversation, error) {
	return nil, nil
}

func newTestGateway(store interfaces.MessageStore) *Gateway {
	cfg := config.DefaultConfig().WebSocket
	return NewGateway(NewRegistry(), NewRecipientRateGate(2, time.Minute), store, cfg)
}

func TestNotifyNewMessageDeliversToRecipient(t *testing.T) {
	gateway := newTestGateway(&fakeMessageStore{})
	recipient := &fakeConn{}
	gateway.registry.Register("u2", recipient)

	msg := &types.Message{
		ID:     primitive.NewObjectID(),
		Sender: primitive.NewObjectID(),
		Text:   "hello",
	}
	gateway.NotifyNewMessage("u2", msg)

	events := recipient.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventNewMessage, events[0].Event)

	var delivered types.Message
	require.NoError(t, json.Unmarshal(events[0].Data, &delivered))
	assert.Equal(t, msg.ID, delivered.ID)
	assert.Equal(t, "hello", delivered.Text)
}

func TestNotifyNewMessageOfflineRecipientIsNoop(t *testing.T) {
	gateway := newTestGateway(&fakeMessageStore{})

	gateway.NotifyNewMessage("offline", &types.Message{Text: "hello"})

	assert.Empty(t, gateway.registry.ActiveUserIDs())
}

func TestPresenceBroadcastReachesAnonymousConnection(t *testing.T) {
	gateway := newTestGateway(&fakeMessageStore{})
	anonymous := &fakeConn{}
	gateway.registry.Attach(anonymous)

	gateway.registry.Register("u1", &fakeConn{})
	gateway.broadcastOnlineUsers()

	events := anonymous.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventOnlineUsers, events[0].Event)

	var online []string
	require.NoError(t, json.Unmarshal(events[0].Data, &online))
	assert.Equal(t, []string{"u1"}, online)
}

func TestMarkSeenPersistsAndNotifiesOwner(t *testing.T) {
	store := &fakeMessageStore{}
	gateway := newTestGateway(store)
	owner := &fakeConn{}
	gateway.registry.Register("u1", owner)

	convID := primitive.NewObjectID()
	gateway.handleMarkSeen(MarkMessagesAsSeenPayload{
		ConversationID: convID.Hex(),
		UserID:         "u1",
	})

	require.Equal(t, []primitive.ObjectID{convID}, store.seenCalls)

	events := owner.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventMessagesSeen, events[0].Event)

	var payload MessagesSeenPayload
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, convID.Hex(), payload.ConversationID)
}

func TestMarkSeenOfflineOwnerStillPersists(t *testing.T) {
	store := &fakeMessageStore{}
	gateway := newTestGateway(store)

	convID := primitive.NewObjectID()
	gateway.handleMarkSeen(MarkMessagesAsSeenPayload{
		ConversationID: convID.Hex(),
		UserID:         "u1",
	})

	assert.Equal(t, []primitive.ObjectID{convID}, store.seenCalls)
}

func TestMarkSeenPersistenceFailureSkipsNotify(t *testing.T) {
	store := &fakeMessageStore{
		markSeenFn: func(primitive.ObjectID) error { return assert.AnError },
	}
	gateway := newTestGateway(store)
	owner := &fakeConn{}
	gateway.registry.Register("u1", owner)

	gateway.handleMarkSeen(MarkMessagesAsSeenPayload{
		ConversationID: primitive.NewObjectID().Hex(),
		UserID:         "u1",
	})

	assert.Empty(t, owner.received())
}

func TestMarkSeenInvalidConversationIDIgnored(t *testing.T) {
	store := &fakeMessageStore{}
	gateway := newTestGateway(store)

	gateway.handleMarkSeen(MarkMessagesAsSeenPayload{
		ConversationID: "not-a-hex-id",
		UserID:         "u1",
	})

	assert.Empty(t, store.seenCalls)
}

func TestDispatchRejectsMalformedPayload(t *testing.T) {
	store := &fakeMessageStore{}
	gateway := newTestGateway(store)

	gateway.dispatch(Event{
		Event: EventMarkMessagesAsSeen,
		Data:  json.RawMessage(`{"conversationId": ""}`),
	}, "u1")

	assert.Empty(t, store.seenCalls)
}

func TestRecordRecipientWarnsSenderOnDenial(t *testing.T) {
	gateway := newTestGateway(&fakeMessageStore{})
	sender := &fakeConn{}
	gateway.registry.Register("u1", sender)

	gateway.RecordRecipient("u1", "a")
	gateway.RecordRecipient("u1", "b")
	assert.Empty(t, sender.received())

	gateway.RecordRecipient("u1", "c")
	events := sender.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventRateLimit, events[0].Event)

	var payload RateLimitPayload
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.NotEmpty(t, payload.Message)
}

func TestRecordRecipientDenialWithOfflineSender(t *testing.T) {
	gateway := newTestGateway(&fakeMessageStore{})

	gateway.RecordRecipient("u1", "a")
	gateway.RecordRecipient("u1", "b")
	gateway.RecordRecipient("u1", "c")
}

// Full send-and-seen flow across two users, exercised through the
// gateway's public surface with fake connections.
func TestMessagingFlow(t *testing.T) {
	store := &fakeMessageStore{}
	gateway := newTestGateway(store)

	h1 := &fakeConn{}
	h2 := &fakeConn{}
	gateway.registry.Register("u1", h1)
	gateway.registry.Register("u2", h2)

	// U1 sends to U2 while U2 is online.
	msg1 := &types.Message{ID: primitive.NewObjectID(), Text: "first"}
	gateway.NotifyNewMessage("u2", msg1)
	require.Len(t, h2.received(), 1)

	// U2 disconnects; the next send is dropped silently.
	gateway.registry.Unregister("u2", h2)
	msg2 := &types.Message{ID: primitive.NewObjectID(), Text: "second"}
	gateway.NotifyNewMessage("u2", msg2)

	// U2 reconnects on a fresh handle and is present again.
	h3 := &fakeConn{}
	gateway.registry.Register("u2", h3)
	assert.ElementsMatch(t, []string{"u1", "u2"}, gateway.registry.ActiveUserIDs())

	// U2 views the conversation; U1 is notified.
	convID := primitive.NewObjectID()
	gateway.handleMarkSeen(MarkMessagesAsSeenPayload{
		ConversationID: convID.Hex(),
		UserID:         "u1",
	})
	require.Equal(t, []primitive.ObjectID{convID}, store.seenCalls)

	events := h1.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventMessagesSeen, events[0].Event)
}
