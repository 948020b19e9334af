package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/auth"
	"threadline/internal/blob"
	"threadline/internal/logging"
	"threadline/pkg/types"
)

type createPostRequest struct {
	PostedBy string `json:"postedBy" validate:"required"`
	Text     string `json:"text" validate:"required"`
	Img      string `json:"img"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "PostedBy and text fields are required")
		return
	}
	if len(req.Text) > types.MaxPostLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Text must be less than %d characters", types.MaxPostLength))
		return
	}

	postedBy, err := primitive.ObjectIDFromHex(req.PostedBy)
	if err != nil || postedBy != user.ID {
		writeError(w, http.StatusUnauthorized, "Unauthorized to create post")
		return
	}

	post := &types.Post{PostedBy: user.ID, Text: req.Text}

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
		post.Img = url
	}

	if err := s.posts.CreatePost(r.Context(), post); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	post, err := s.posts.GetPost(r.Context(), postID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	post, err := s.posts.GetPost(r.Context(), postID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if post.PostedBy != user.ID {
		writeError(w, http.StatusUnauthorized, "Unauthorized to delete post")
		return
	}

	if post.Img != "" {
		if err := s.blobs.Delete(r.Context(), blob.KeyFromURL(post.Img)); err != nil {
			logging.Warn().Err(err).Str("post_id", postID.Hex()).Msg("failed to delete post image")
		}
	}

	if err := s.posts.DeletePost(r.Context(), postID); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

// handleLikePost toggles the caller's like on the post.
func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	post, err := s.posts.GetPost(r.Context(), postID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	liked := false
	for _, id := range post.Likes {
		if id == user.ID {
			liked = true
			break
		}
	}

	if liked {
		if err := s.posts.UnlikePost(r.Context(), postID, user.ID); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Post unliked successfully"})
		return
	}

	if err := s.posts.LikePost(r.Context(), postID, user.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post liked successfully"})
}

type replyRequest struct {
	Text string `json:"text" validate:"required"`
}

func (s *Server) handleReplyToPost(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Text field is required")
		return
	}

	reply := types.Reply{
		UserID:         user.ID,
		Text:           req.Text,
		Username:       user.Username,
		UserProfilePic: user.ProfilePic,
	}

	if err := s.posts.AddReply(r.Context(), postID, reply); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// handleFeed lists posts from the accounts the caller follows, newest
// first.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	following, err := s.users.FollowingIDs(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	posts := []*types.Post{}
	if len(following) > 0 {
		posts, err = s.posts.FeedPosts(r.Context(), following)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if posts == nil {
			posts = []*types.Post{}
		}
	}

	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := s.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	posts, err := s.posts.UserPosts(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if posts == nil {
		posts = []*types.Post{}
	}

	writeJSON(w, http.StatusOK, posts)
}
