package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// PostRepo implements interfaces.PostStore over the posts collection.
type PostRepo struct {
	posts *mongo.Collection
}

// NewPostRepo creates the post repository.
func NewPostRepo(m *Mongo) *PostRepo {
	return &PostRepo{posts: m.db.Collection(postsCollection)}
}

func (r *PostRepo) CreatePost(ctx context.Context, post *types.Post) error {
	post.CreatedAt = time.Now()
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Replies == nil {
		post.Replies = []types.Reply{}
	}

	res, err := r.posts.InsertOne(ctx, post)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

func (r *PostRepo) GetPost(ctx context.Context, id primitive.ObjectID) (*types.Post, error) {
	var post types.Post
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, interfaces.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

func (r *PostRepo) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return interfaces.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) LikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	res, err := r.posts.UpdateByID(ctx, postID, bson.M{"$push": bson.M{"likes": userID}})
	if err != nil {
		return fmt.Errorf("failed to like post: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	res, err := r.posts.UpdateByID(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		return fmt.Errorf("failed to unlike post: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) AddReply(ctx context.Context, postID primitive.ObjectID, reply types.Reply) error {
	res, err := r.posts.UpdateByID(ctx, postID, bson.M{"$push": bson.M{"replies": reply}})
	if err != nil {
		return fmt.Errorf("failed to add reply: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) FeedPosts(ctx context.Context, authors []primitive.ObjectID) ([]*types.Post, error) {
	return r.listPosts(ctx, bson.M{"posted_by": bson.M{"$in": authors}})
}

func (r *PostRepo) UserPosts(ctx context.Context, author primitive.ObjectID) ([]*types.Post, error) {
	return r.listPosts(ctx, bson.M{"posted_by": author})
}

func (r *PostRepo) listPosts(ctx context.Context, filter bson.M) ([]*types.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []*types.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

// UpdateReplySnapshots refreshes the denormalized username/profile-pic
// copies embedded in every reply the user has authored.
func (r *PostRepo) UpdateReplySnapshots(ctx context.Context, userID primitive.ObjectID, username, profilePic string) error {
	filter := bson.M{"replies.user_id": userID}
	update := bson.M{"$set": bson.M{
		"replies.$[reply].username":         username,
		"replies.$[reply].user_profile_pic": profilePic,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"reply.user_id": userID}},
	})

	_, err := r.posts.UpdateMany(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update reply snapshots: %w", err)
	}
	return nil
}
