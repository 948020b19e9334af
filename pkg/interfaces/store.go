package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/pkg/types"
)

// UserStore handles user and follow-edge persistence.
type UserStore interface {
	// CreateUser inserts a new user. The caller is responsible for
	// hashing the password before insertion.
	CreateUser(ctx context.Context, user *types.User) error

	// GetUserByID retrieves a user by ObjectID. Returns ErrUserNotFound
	// when no document matches.
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*types.User, error)

	// GetUserByUsername retrieves a user by exact username.
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)

	// FindByEmailOrUsername returns a user matching either field, used
	// for signup uniqueness checks. Returns ErrUserNotFound when free.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*types.User, error)

	// UpdateUser replaces the mutable profile fields of an existing user.
	UpdateUser(ctx context.Context, user *types.User) error

	// SetFrozen flips the frozen flag on an account.
	SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) error

	// SuggestedUsers samples up to limit users that are neither the
	// caller nor already followed by the caller.
	SuggestedUsers(ctx context.Context, userID primitive.ObjectID, limit int) ([]*types.User, error)

	// GetProfiles resolves public profiles for a set of user IDs.
	GetProfiles(ctx context.Context, ids []primitive.ObjectID) ([]types.Profile, error)

	// GetFollow returns the follow edge follower->following, or
	// ErrNotFound when the edge does not exist.
	GetFollow(ctx context.Context, follower, following primitive.ObjectID) (*types.Follow, error)

	// CreateFollow inserts a follow edge.
	CreateFollow(ctx context.Context, follow *types.Follow) error

	// DeleteFollow removes a follow edge by its document ID.
	DeleteFollow(ctx context.Context, id primitive.ObjectID) error

	// FollowingIDs lists the IDs of every user the follower follows.
	FollowingIDs(ctx context.Context, follower primitive.ObjectID) ([]primitive.ObjectID, error)
}

// PostStore handles post persistence including embedded likes and replies.
type PostStore interface {
	CreatePost(ctx context.Context, post *types.Post) error

	// GetPost returns ErrPostNotFound when no document matches.
	GetPost(ctx context.Context, id primitive.ObjectID) (*types.Post, error)

	DeletePost(ctx context.Context, id primitive.ObjectID) error

	// LikePost appends userID to the post's likes array.
	LikePost(ctx context.Context, postID, userID primitive.ObjectID) error

	// UnlikePost pulls userID from the post's likes array.
	UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) error

	// AddReply appends a reply snapshot to the post.
	AddReply(ctx context.Context, postID primitive.ObjectID, reply types.Reply) error

	// FeedPosts lists posts authored by any of the given users, newest
	// first.
	FeedPosts(ctx context.Context, authors []primitive.ObjectID) ([]*types.Post, error)

	// UserPosts lists a single author's posts, newest first.
	UserPosts(ctx context.Context, author primitive.ObjectID) ([]*types.Post, error)

	// UpdateReplySnapshots refreshes the username/profile-pic snapshots
	// embedded in replies authored by userID across all posts.
	UpdateReplySnapshots(ctx context.Context, userID primitive.ObjectID, username, profilePic string) error
}

// MessageStore handles conversation and message persistence. It is the
// persistence collaborator of the realtime layer: the seen-acknowledgment
// path calls MarkConversationSeen and nothing else mutates stored
// messages after insertion.
type MessageStore interface {
	// GetConversationByParticipants looks a conversation up by its
	// unordered participant pair. Returns ErrConversationNotFound when
	// the pair has never exchanged messages.
	GetConversationByParticipants(ctx context.Context, a, b primitive.ObjectID) (*types.Conversation, error)

	CreateConversation(ctx context.Context, conv *types.Conversation) error

	// UpdateLastMessage rewrites the conversation's denormalized summary.
	UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, last types.LastMessage) error

	CreateMessage(ctx context.Context, msg *types.Message) error

	// ListMessages returns a conversation's messages ordered by creation
	// time ascending.
	ListMessages(ctx context.Context, convID primitive.ObjectID) ([]*types.Message, error)

	// ListConversations returns every conversation the user participates
	// in, most recently updated first.
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]*types.Conversation, error)

	// MarkConversationSeen sets seen=true on every unseen message in the
	// conversation and seen=true on the conversation's last-message
	// summary. Idempotent: already-seen messages are left untouched.
	MarkConversationSeen(ctx context.Context, convID primitive.ObjectID) error
}
