package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"threadline/internal/auth"
	"threadline/internal/config"
	"threadline/internal/realtime"
	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// In-memory store fakes backing the handler tests.

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]*types.User
	follows map[primitive.ObjectID]*types.Follow
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[primitive.ObjectID]*types.User),
		follows: make(map[primitive.ObjectID]*types.Follow),
	}
}

func (s *fakeUserStore) CreateUser(ctx context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeUserStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, interfaces.ErrUserNotFound
}

func (s *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, interfaces.ErrUserNotFound
}

func (s *fakeUserStore) FindByEmailOrUsername(ctx context.Context, email, username string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email || user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, interfaces.ErrUserNotFound
}

func (s *fakeUserStore) UpdateUser(ctx context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return interfaces.ErrUserNotFound
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeUserStore) SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return interfaces.ErrUserNotFound
	}
	user.IsFrozen = frozen
	return nil
}

func (s *fakeUserStore) SuggestedUsers(ctx context.Context, userID primitive.ObjectID, limit int) ([]*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	followed := make(map[primitive.ObjectID]struct{})
	for _, f := range s.follows {
		if f.Follower == userID {
			followed[f.Following] = struct{}{}
		}
	}
	var out []*types.User
	for id, user := range s.users {
		if id == userID {
			continue
		}
		if _, ok := followed[id]; ok {
			continue
		}
		if len(out) >= limit {
			break
		}
		clone := *user
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeUserStore) GetProfiles(ctx context.Context, ids []primitive.ObjectID) ([]types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Profile
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out = append(out, types.Profile{
				ID:         user.ID,
				Name:       user.Name,
				Username:   user.Username,
				Bio:        user.Bio,
				ProfilePic: user.ProfilePic,
			})
		}
	}
	return out, nil
}

func (s *fakeUserStore) GetFollow(ctx context.Context, follower, following primitive.ObjectID) (*types.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.follows {
		if f.Follower == follower && f.Following == following {
			clone := *f
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *fakeUserStore) CreateFollow(ctx context.Context, follow *types.Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	follow.ID = primitive.NewObjectID()
	follow.CreatedAt = time.Now()
	clone := *follow
	s.follows[follow.ID] = &clone
	return nil
}

func (s *fakeUserStore) DeleteFollow(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows, id)
	return nil
}

func (s *fakeUserStore) FollowingIDs(ctx context.Context, follower primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []primitive.ObjectID
	for _, f := range s.follows {
		if f.Follower == follower {
			out = append(out, f.Following)
		}
	}
	return out, nil
}

type fakePostStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*types.Post

	snapshotCalls int
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[primitive.ObjectID]*types.Post)}
}

func (s *fakePostStore) CreatePost(ctx context.Context, post *types.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Replies == nil {
		post.Replies = []types.Reply{}
	}
	clone := *post
	s.posts[post.ID] = &clone
	return nil
}

func (s *fakePostStore) GetPost(ctx context.Context, id primitive.ObjectID) (*types.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post, ok := s.posts[id]; ok {
		clone := *post
		return &clone, nil
	}
	return nil, interfaces.ErrPostNotFound
}

func (s *fakePostStore) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return interfaces.ErrPostNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *fakePostStore) LikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return interfaces.ErrPostNotFound
	}
	post.Likes = append(post.Likes, userID)
	return nil
}

func (s *fakePostStore) UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return interfaces.ErrPostNotFound
	}
	var likes []primitive.ObjectID
	for _, id := range post.Likes {
		if id != userID {
			likes = append(likes, id)
		}
	}
	post.Likes = likes
	return nil
}

func (s *fakePostStore) AddReply(ctx context.Context, postID primitive.ObjectID, reply types.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return interfaces.ErrPostNotFound
	}
	post.Replies = append(post.Replies, reply)
	return nil
}

func (s *fakePostStore) FeedPosts(ctx context.Context, authors []primitive.ObjectID) ([]*types.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[primitive.ObjectID]struct{}, len(authors))
	for _, id := range authors {
		set[id] = struct{}{}
	}
	var out []*types.Post
	for _, post := range s.posts {
		if _, ok := set[post.PostedBy]; ok {
			clone := *post
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakePostStore) UserPosts(ctx context.Context, author primitive.ObjectID) ([]*types.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Post
	for _, post := range s.posts {
		if post.PostedBy == author {
			clone := *post
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakePostStore) UpdateReplySnapshots(ctx context.Context, userID primitive.ObjectID, username, profilePic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotCalls++
	for _, post := range s.posts {
		for i := range post.Replies {
			if post.Replies[i].UserID == userID {
				post.Replies[i].Username = username
				post.Replies[i].UserProfilePic = profilePic
			}
		}
	}
	return nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	convs    map[primitive.ObjectID]*types.Conversation
	messages []*types.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{convs: make(map[primitive.ObjectID]*types.Conversation)}
}

func (s *fakeMessageStore) GetConversationByParticipants(ctx context.Context, a, b primitive.ObjectID) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.convs {
		match := 0
		for _, p := range conv.Participants {
			if p == a || p == b {
				match++
			}
		}
		if match == 2 {
			clone := *conv
			return &clone, nil
		}
	}
	return nil, interfaces.ErrConversationNotFound
}

func (s *fakeMessageStore) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = primitive.NewObjectID()
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	clone := *conv
	s.convs[conv.ID] = &clone
	return nil
}

func (s *fakeMessageStore) UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, last types.LastMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return interfaces.ErrConversationNotFound
	}
	conv.LastMessage = last
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *fakeMessageStore) CreateMessage(ctx context.Context, msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now()
	clone := *msg
	s.messages = append(s.messages, &clone)
	return nil
}

func (s *fakeMessageStore) ListMessages(ctx context.Context, convID primitive.ObjectID) ([]*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Message
	for _, msg := range s.messages {
		if msg.ConversationID == convID {
			clone := *msg
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Conversation
	for _, conv := range s.convs {
		for _, p := range conv.Participants {
			if p == userID {
				clone := *conv
				out = append(out, &clone)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkConversationSeen(ctx context.Context, convID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return interfaces.ErrConversationNotFound
	}
	for _, msg := range s.messages {
		if msg.ConversationID == convID {
			msg.Seen = true
		}
	}
	conv.LastMessage.Seen = true
	return nil
}

type fakeBlobStorage struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (s *fakeBlobStorage) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, key)
	return "https://blobs.test/" + key, nil
}

func (s *fakeBlobStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

// fakeSocket implements realtime.Conn for asserting relayed events.
type fakeSocket struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *fakeSocket) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev, ok := v.(realtime.Event); ok {
		c.events = append(c.events, ev)
	}
	return nil
}

func (c *fakeSocket) Close() error { return nil }

func (c *fakeSocket) received() []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.Event, len(c.events))
	copy(out, c.events)
	return out
}

type testEnv struct {
	server   *Server
	users    *fakeUserStore
	posts    *fakePostStore
	messages *fakeMessageStore
	blobs    *fakeBlobStorage
	gateway  *realtime.Gateway
	issuer   *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"

	users := newFakeUserStore()
	posts := newFakePostStore()
	messages := newFakeMessageStore()
	blobs := &fakeBlobStorage{}

	gateway := realtime.NewGateway(
		realtime.NewRegistry(),
		realtime.NewRecipientRateGate(cfg.RateLimit.RecipientLimit, cfg.RateLimit.RecipientWindow),
		messages,
		cfg.WebSocket,
	)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	return &testEnv{
		server:   NewServer(cfg, users, posts, messages, blobs, gateway, issuer, nil),
		users:    users,
		posts:    posts,
		messages: messages,
		blobs:    blobs,
		gateway:  gateway,
		issuer:   issuer,
	}
}

func (e *testEnv) addUser(t *testing.T, username string) *types.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &types.User{
		Name:     username,
		Email:    username + "@example.com",
		Username: username,
		Password: hash,
	}
	require.NoError(t, e.users.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, as *types.User) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if as != nil {
		token, err := e.issuer.Sign(as.ID.Hex())
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, r)
	return w
}
