package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/auth"
	"threadline/internal/blob"
	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Message     string `json:"message" validate:"required"`
	Img         string `json:"img"`
}

// handleSendMessage persists a message and relays it to the recipient's
// realtime connection. The recipient rate gate is advisory: an
// over-limit sender gets a warning event but the send still goes
// through.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sender, _ := auth.UserFrom(r.Context())

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "RecipientId and message fields are required")
		return
	}

	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipient id")
		return
	}

	if _, err := s.users.GetUserByID(r.Context(), recipientID); err != nil {
		writeStoreError(w, err)
		return
	}

	conv, err := s.messages.GetConversationByParticipants(r.Context(), sender.ID, recipientID)
	if errors.Is(err, interfaces.ErrConversationNotFound) {
		conv = &types.Conversation{
			Participants: []primitive.ObjectID{sender.ID, recipientID},
			LastMessage:  types.LastMessage{Text: req.Message, Sender: sender.ID},
		}
		if err := s.messages.CreateConversation(r.Context(), conv); err != nil {
			writeStoreError(w, err)
			return
		}
	} else if err != nil {
		writeStoreError(w, err)
		return
	}

	msg := &types.Message{
		ConversationID: conv.ID,
		Sender:         sender.ID,
		Text:           req.Message,
	}

	if req.Img != "" {
		img, err := blob.DecodeImage(req.Img)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid image payload")
			return
		}
		url, err := s.blobs.Upload(r.Context(), img.Data, uuid.New().String()+"."+img.Ext, img.ContentType)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		msg.Img = url
	}

	if err := s.messages.CreateMessage(r.Context(), msg); err != nil {
		writeStoreError(w, err)
		return
	}

	last := types.LastMessage{Text: req.Message, Sender: sender.ID}
	if err := s.messages.UpdateLastMessage(r.Context(), conv.ID, last); err != nil {
		writeStoreError(w, err)
		return
	}

	s.gateway.RecordRecipient(sender.ID.Hex(), recipientID.Hex())
	s.gateway.NotifyNewMessage(recipientID.Hex(), msg)

	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	otherID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "otherUserId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	conv, err := s.messages.GetConversationByParticipants(r.Context(), user.ID, otherID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	msgs, err := s.messages.ListMessages(r.Context(), conv.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*types.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

// handleConversations lists the caller's conversations with participant
// profiles resolved in one batch lookup.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	convs, err := s.messages.ListConversations(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	idSet := make(map[primitive.ObjectID]struct{})
	for _, conv := range convs {
		for _, id := range conv.Participants {
			if id == user.ID {
				continue
			}
			idSet[id] = struct{}{}
		}
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	profiles := map[primitive.ObjectID]types.Profile{}
	if len(ids) > 0 {
		resolved, err := s.users.GetProfiles(r.Context(), ids)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		for _, p := range resolved {
			profiles[p.ID] = p
		}
	}

	views := make([]types.ConversationView, 0, len(convs))
	for _, conv := range convs {
		view := types.ConversationView{
			ID:          conv.ID,
			LastMessage: conv.LastMessage,
			UpdatedAt:   conv.UpdatedAt,
		}
		// Clients render the other party, so the caller is left out.
		for _, id := range conv.Participants {
			if id == user.ID {
				continue
			}
			if p, ok := profiles[id]; ok {
				view.Participants = append(view.Participants, p)
			}
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}
