package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account document. Password carries the bcrypt hash and is
// stripped (json:"-") from every API response.
type User struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	Email      string             `json:"email" bson:"email"`
	Username   string             `json:"username" bson:"username"`
	Password   string             `json:"-" bson:"password"`
	Bio        string             `json:"bio,omitempty" bson:"bio,omitempty"`
	ProfilePic string             `json:"profilePic,omitempty" bson:"profile_pic,omitempty"`
	IsFrozen   bool               `json:"isFrozen,omitempty" bson:"is_frozen"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time          `json:"-" bson:"updated_at"`
}

// Profile is the public projection of a User returned by profile and
// participant lookups.
type Profile struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	Name       string             `json:"name" bson:"name"`
	Username   string             `json:"username" bson:"username"`
	Bio        string             `json:"bio,omitempty" bson:"bio,omitempty"`
	ProfilePic string             `json:"profilePic,omitempty" bson:"profile_pic,omitempty"`
}

// Follow is a directed edge: Follower follows Following.
type Follow struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Follower  primitive.ObjectID `json:"follower" bson:"follower"`
	Following primitive.ObjectID `json:"following" bson:"following"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// Reply is an embedded comment on a post. Username and profile pic are
// snapshots taken at reply time and refreshed on profile updates.
type Reply struct {
	UserID         primitive.ObjectID `json:"userId" bson:"user_id"`
	Text           string             `json:"text" bson:"text"`
	Username       string             `json:"username" bson:"username"`
	UserProfilePic string             `json:"userProfilePic,omitempty" bson:"user_profile_pic,omitempty"`
}

// Post is a feed entry with embedded likes and replies.
type Post struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	PostedBy  primitive.ObjectID   `json:"postedBy" bson:"posted_by"`
	Text      string               `json:"text" bson:"text"`
	Img       string               `json:"img,omitempty" bson:"img,omitempty"`
	Likes     []primitive.ObjectID `json:"likes" bson:"likes"`
	Replies   []Reply              `json:"replies" bson:"replies"`
	CreatedAt time.Time            `json:"createdAt" bson:"created_at"`
}

// LastMessage is the denormalized summary a conversation carries for its
// most recent message. Seen mirrors the underlying message's seen flag
// and both are updated together by the seen-acknowledgment path.
type LastMessage struct {
	Text   string             `json:"text" bson:"text"`
	Sender primitive.ObjectID `json:"sender" bson:"sender"`
	Seen   bool               `json:"seen" bson:"seen"`
}

// Conversation is a two-party thread. Participants always holds exactly
// two user IDs and a conversation is looked up by the unordered pair.
type Conversation struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	LastMessage  LastMessage          `json:"lastMessage" bson:"last_message"`
	CreatedAt    time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updated_at"`
}

// ConversationView is a conversation plus the other participant's public
// profile, as returned by the conversation list endpoint.
type ConversationView struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Participants []Profile          `json:"participants" bson:"participants"`
	LastMessage  LastMessage        `json:"lastMessage" bson:"last_message"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Message is immutable once stored except for Seen, which transitions
// false -> true exactly once via the seen-acknowledgment path.
type Message struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	Sender         primitive.ObjectID `json:"sender" bson:"sender"`
	Text           string             `json:"text" bson:"text"`
	Img            string             `json:"img,omitempty" bson:"img,omitempty"`
	Seen           bool               `json:"seen" bson:"seen"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}
