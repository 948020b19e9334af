package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/config"
	"threadline/internal/logging"
	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// Gateway owns the realtime side of messaging: the presence registry,
// the recipient rate gate, and the per-connection event loops. The HTTP
// send path calls into it to relay persisted messages and to record
// recipients against the rate gate.
type Gateway struct {
	registry *Registry
	gate     *RecipientRateGate
	messages interfaces.MessageStore
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway backed by the given registry, gate and
// message store.
func NewGateway(registry *Registry, gate *RecipientRateGate, messages interfaces.MessageStore, cfg config.WebSocketConfig) *Gateway {
	return &Gateway{
		registry: registry,
		gate:     gate,
		messages: messages,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Registry exposes the presence registry for collaborators that only
// need lookups.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// HandleWebSocket upgrades the request and serves the connection until
// it drops. The handshake carries the user's id as a query parameter;
// the sentinel "undefined" value means an unauthenticated client, which
// is served but never registered as present.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws, g.cfg.BufferSize, g.cfg.WriteTimeout)
	g.registry.Attach(conn)

	registered := userID != "" && userID != types.UnauthenticatedUserID
	if registered {
		g.registry.Register(userID, conn)
		g.broadcastOnlineUsers()
		logging.Debug().Str("user_id", userID).Msg("user connected")
	} else {
		// Unauthenticated clients still follow presence.
		if event, err := NewEvent(EventOnlineUsers, g.registry.ActiveUserIDs()); err == nil {
			_ = conn.WriteJSON(event)
		}
	}

	go g.serve(conn, ws, userID, registered)
}

func (g *Gateway) serve(conn *Connection, ws *websocket.Conn, userID string, registered bool) {
	defer func() {
		g.registry.Detach(conn)
		if registered {
			g.registry.Unregister(userID, conn)
			g.broadcastOnlineUsers()
			logging.Debug().Str("user_id", userID).Msg("user disconnected")
		}
		_ = conn.Close()
	}()

	if err := ws.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(g.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Str("user_id", userID).Msg("websocket read failed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil || event.Event == "" {
			logging.Warn().Str("user_id", userID).Msg("malformed realtime event")
			continue
		}

		g.dispatch(event, userID)
	}
}

func (g *Gateway) dispatch(event Event, userID string) {
	switch event.Event {
	case EventMarkMessagesAsSeen:
		var payload MarkMessagesAsSeenPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil || payload.ConversationID == "" || payload.UserID == "" {
			logging.Warn().Str("event", event.Event).Msg("malformed realtime event payload")
			return
		}
		g.handleMarkSeen(payload)
	default:
		logging.Debug().Str("event", event.Event).Str("user_id", userID).Msg("unknown realtime event")
	}
}

// handleMarkSeen persists the seen-acknowledgment and notifies the
// message owner if they are connected. Persistence failures are logged
// and dropped; the acknowledging client gets no error feedback over the
// realtime channel.
func (g *Gateway) handleMarkSeen(payload MarkMessagesAsSeenPayload) {
	convID, err := primitive.ObjectIDFromHex(payload.ConversationID)
	if err != nil {
		logging.Warn().Str("conversation_id", payload.ConversationID).Msg("invalid conversation id in seen event")
		return
	}

	if err := g.messages.MarkConversationSeen(context.Background(), convID); err != nil {
		logging.Error().Err(err).Str("conversation_id", payload.ConversationID).Msg("failed to mark conversation seen")
		return
	}

	owner, ok := g.registry.Lookup(payload.UserID)
	if !ok {
		return
	}
	event, err := NewEvent(EventMessagesSeen, MessagesSeenPayload{ConversationID: payload.ConversationID})
	if err != nil {
		return
	}
	// The owner may have disconnected since the lookup; a failed write
	// to the stale handle is a no-op.
	_ = owner.WriteJSON(event)
}

// NotifyNewMessage relays a persisted message to its recipient. If the
// recipient is offline nothing happens; they pick the message up from
// conversation history instead.
func (g *Gateway) NotifyNewMessage(recipientID string, msg *types.Message) {
	conn, ok := g.registry.Lookup(recipientID)
	if !ok {
		return
	}
	event, err := NewEvent(EventNewMessage, msg)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode message event")
		return
	}
	_ = conn.WriteJSON(event)
}

// RecordRecipient feeds the send into the rate gate and, on denial,
// warns the sender over their realtime connection. Denial never blocks
// the send itself.
func (g *Gateway) RecordRecipient(senderID, recipientID string) {
	if g.gate.CheckAndRecord(senderID, recipientID) {
		return
	}

	logging.Warn().Str("user_id", senderID).Msg("recipient rate limit exceeded")

	conn, ok := g.registry.Lookup(senderID)
	if !ok {
		return
	}
	event, err := NewEvent(EventRateLimit, RateLimitPayload{
		Message: "You are messaging too many different users. Please slow down.",
	})
	if err != nil {
		return
	}
	_ = conn.WriteJSON(event)
}

func (g *Gateway) broadcastOnlineUsers() {
	event, err := NewEvent(EventOnlineUsers, g.registry.ActiveUserIDs())
	if err != nil {
		return
	}
	g.registry.Broadcast(event)
}
