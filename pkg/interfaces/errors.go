package interfaces

import "errors"

// Sentinel errors shared across store implementations so handlers can
// translate persistence failures into HTTP statuses without inspecting
// driver-specific error types.
var (
	ErrNotFound             = errors.New("document not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDuplicateUser        = errors.New("user already exists")
)
