package realtime

import "encoding/json"

// Event names exchanged over the realtime channel. Inbound and outbound
// frames share one envelope shape: {"event": <name>, "data": <payload>}.
const (
	// EventOnlineUsers carries the full active-user-id list; broadcast to
	// every connection on any connect or disconnect.
	EventOnlineUsers = "getOnlineUsers"

	// EventMarkMessagesAsSeen is sent by a client viewing a conversation.
	EventMarkMessagesAsSeen = "markMessagesAsSeen"

	// EventMessagesSeen notifies a message owner that the other
	// participant has seen the conversation.
	EventMessagesSeen = "messagesSeen"

	// EventNewMessage delivers a freshly persisted message to its
	// recipient.
	EventNewMessage = "newMessage"

	// EventRateLimit warns a sender that they exceeded the distinct
	// recipient limit. Advisory only; the send itself is not blocked.
	EventRateLimit = "rateLimit"
)

// Event is the tagged envelope for every realtime frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an envelope around a marshaled payload.
func NewEvent(name string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: name, Data: data}, nil
}

// MarkMessagesAsSeenPayload is the inbound seen-acknowledgment. UserID
// identifies the other participant to notify, not the acknowledging user.
type MarkMessagesAsSeenPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// MessagesSeenPayload is the outbound seen notification.
type MessagesSeenPayload struct {
	ConversationID string `json:"conversationId"`
}

// RateLimitPayload is the outbound advisory warning.
type RateLimitPayload struct {
	Message string `json:"message"`
}
