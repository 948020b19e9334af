package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/auth"
	"threadline/internal/blob"
	"threadline/internal/logging"
	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// suggestedUserCount is the number of accounts returned by the
// suggestions endpoint.
const suggestedUserCount = 4

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !types.IsValidUsername(req.Username) {
		writeError(w, http.StatusBadRequest, types.ErrInvalidUsername.Error())
		return
	}

	_, err := s.users.FindByEmailOrUsername(r.Context(), req.Email, req.Username)
	if err == nil {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if !errors.Is(err, interfaces.ErrUserNotFound) {
		writeStoreError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	user := &types.User{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
		Password: hash,
	}
	if err := s.users.CreateUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.issuer.SetCookie(w, user.ID.Hex()); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid username or password")
			return
		}
		writeStoreError(w, err)
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		writeError(w, http.StatusBadRequest, "Invalid username or password")
		return
	}

	// Logging in thaws a frozen account.
	if user.IsFrozen {
		if err := s.users.SetFrozen(r.Context(), user.ID, false); err != nil {
			writeStoreError(w, err)
			return
		}
		user.IsFrozen = false
	}

	if err := s.issuer.SetCookie(w, user.ID.Hex()); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.issuer.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User logged out successfully"})
}

// handleGetProfile resolves the path segment as an ObjectID first and
// falls back to a username lookup.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")

	var user *types.User
	var err error
	if oid, idErr := primitive.ObjectIDFromHex(query); idErr == nil {
		user, err = s.users.GetUserByID(r.Context(), oid)
	} else {
		user, err = s.users.GetUserByUsername(r.Context(), query)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSuggestedUsers(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	suggested, err := s.users.SuggestedUsers(r.Context(), user.ID, suggestedUserCount)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if suggested == nil {
		suggested = []*types.User{}
	}

	writeJSON(w, http.StatusOK, suggested)
}

// handleFollowUser toggles the follow edge to the target user.
func (s *Server) handleFollowUser(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFrom(r.Context())

	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	if targetID == current.ID {
		writeError(w, http.StatusBadRequest, "You cannot follow/unfollow yourself")
		return
	}

	if _, err := s.users.GetUserByID(r.Context(), targetID); err != nil {
		writeStoreError(w, err)
		return
	}

	edge, err := s.users.GetFollow(r.Context(), current.ID, targetID)
	switch {
	case err == nil:
		if err := s.users.DeleteFollow(r.Context(), edge.ID); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User unfollowed successfully"})
	case errors.Is(err, interfaces.ErrNotFound):
		follow := &types.Follow{Follower: current.ID, Following: targetID}
		if err := s.users.CreateFollow(r.Context(), follow); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User followed successfully"})
	default:
		writeStoreError(w, err)
	}
}

type updateUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Username   string `json:"username"`
	Password   string `json:"password" validate:"omitempty,min=6"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profilePic"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	pathID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil || pathID != user.ID {
		writeError(w, http.StatusBadRequest, "You cannot update other user's profile")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Username != "" {
		if !types.IsValidUsername(req.Username) {
			writeError(w, http.StatusBadRequest, types.ErrInvalidUsername.Error())
			return
		}
		user.Username = req.Username
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		user.Password = hash
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}

	if req.ProfilePic != "" && req.ProfilePic != user.ProfilePic {
		img, err := blob.DecodeImage(req.ProfilePic)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid image payload")
			return
		}

		if user.ProfilePic != "" {
			if err := s.blobs.Delete(r.Context(), blob.KeyFromURL(user.ProfilePic)); err != nil {
				logging.Warn().Err(err).Msg("failed to delete previous profile pic")
			}
		}

		url, err := s.blobs.Upload(r.Context(), img.Data, uuid.New().String()+"."+img.Ext, img.ContentType)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		user.ProfilePic = url
	}

	if err := s.users.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}

	// Replies embed a snapshot of the author's name and picture; refresh
	// them so old posts show the updated profile.
	if err := s.posts.UpdateReplySnapshots(r.Context(), user.ID, user.Username, user.ProfilePic); err != nil {
		logging.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to update reply snapshots")
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleFreezeAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	if err := s.users.SetFrozen(r.Context(), user.ID, true); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
