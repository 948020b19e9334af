package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"threadline/internal/logging"
	"threadline/pkg/interfaces"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logging.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeStoreError maps persistence sentinel errors to HTTP statuses and
// hides everything else behind a 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, interfaces.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, interfaces.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, interfaces.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		logging.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
