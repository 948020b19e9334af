package auth

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/logging"
	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

type contextKey struct{}

var userContextKey = contextKey{}

// Middleware authenticates requests from the session cookie and loads
// the account document for downstream handlers.
type Middleware struct {
	issuer *Issuer
	users  interfaces.UserStore
}

// NewMiddleware creates the cookie-auth middleware.
func NewMiddleware(issuer *Issuer, users interfaces.UserStore) *Middleware {
	return &Middleware{issuer: issuer, users: users}
}

// Protect rejects requests without a valid session cookie and attaches
// the resolved user to the request context.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			unauthorized(w)
			return
		}

		userID, err := m.issuer.Verify(cookie.Value)
		if err != nil {
			unauthorized(w)
			return
		}

		oid, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			unauthorized(w)
			return
		}

		user, err := m.users.GetUserByID(r.Context(), oid)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("session cookie references unknown user")
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom extracts the authenticated user set by Protect.
func UserFrom(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(userContextKey).(*types.User)
	return user, ok
}
