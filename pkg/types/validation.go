package types

import "regexp"

const (
	// MaxPostLength bounds post and reply text.
	MaxPostLength = 500

	// UnauthenticatedUserID is the handshake sentinel a client sends when
	// it has no identity. Connections presenting it are served but never
	// registered for presence.
	UnauthenticatedUserID = "undefined"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// IsValidUsername checks handle format: 1-30 characters, alphanumeric
// plus underscore, dot and hyphen.
func IsValidUsername(username string) bool {
	if len(username) < 1 || len(username) > 30 {
		return false
	}
	return usernameRegex.MatchString(username)
}
