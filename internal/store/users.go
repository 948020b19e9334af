package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"threadline/pkg/interfaces"
	"threadline/pkg/types"
)

// UserRepo implements interfaces.UserStore over the users and follows
// collections.
type UserRepo struct {
	users   *mongo.Collection
	follows *mongo.Collection
}

// NewUserRepo creates the user repository.
func NewUserRepo(m *Mongo) *UserRepo {
	return &UserRepo{
		users:   m.db.Collection(usersCollection),
		follows: m.db.Collection(followsCollection),
	}
}

func (r *UserRepo) CreateUser(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.users.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*types.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return r.findUser(ctx, bson.M{"username": username})
}

func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*types.User, error) {
	return r.findUser(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

func (r *UserRepo) findUser(ctx context.Context, filter bson.M) (*types.User, error) {
	var user types.User
	err := r.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, interfaces.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) UpdateUser(ctx context.Context, user *types.User) error {
	user.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"name":        user.Name,
		"email":       user.Email,
		"username":    user.Username,
		"password":    user.Password,
		"bio":         user.Bio,
		"profile_pic": user.ProfilePic,
		"is_frozen":   user.IsFrozen,
		"updated_at":  user.UpdatedAt,
	}}

	res, err := r.users.UpdateByID(ctx, user.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) error {
	res, err := r.users.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_frozen":  frozen,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to set frozen flag: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrUserNotFound
	}
	return nil
}

// SuggestedUsers samples users the caller does not already follow.
func (r *UserRepo) SuggestedUsers(ctx context.Context, userID primitive.ObjectID, limit int) ([]*types.User, error) {
	following, err := r.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"_id": bson.M{"$ne": userID, "$nin": following},
		}}},
		{{Key: "$sample", Value: bson.M{"size": limit}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to sample suggested users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*types.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode suggested users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) GetProfiles(ctx context.Context, ids []primitive.ObjectID) ([]types.Profile, error) {
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []types.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	return profiles, nil
}

func (r *UserRepo) GetFollow(ctx context.Context, follower, following primitive.ObjectID) (*types.Follow, error) {
	var follow types.Follow
	err := r.follows.FindOne(ctx, bson.M{
		"follower":  follower,
		"following": following,
	}).Decode(&follow)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find follow edge: %w", err)
	}
	return &follow, nil
}

func (r *UserRepo) CreateFollow(ctx context.Context, follow *types.Follow) error {
	follow.CreatedAt = time.Now()
	res, err := r.follows.InsertOne(ctx, follow)
	if err != nil {
		return fmt.Errorf("failed to insert follow edge: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		follow.ID = oid
	}
	return nil
}

func (r *UserRepo) DeleteFollow(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.follows.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}
	return nil
}

func (r *UserRepo) FollowingIDs(ctx context.Context, follower primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.follows.Find(ctx, bson.M{"follower": follower})
	if err != nil {
		return nil, fmt.Errorf("failed to find follow edges: %w", err)
	}
	defer cursor.Close(ctx)

	var follows []types.Follow
	if err := cursor.All(ctx, &follows); err != nil {
		return nil, fmt.Errorf("failed to decode follow edges: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.Following)
	}
	return ids, nil
}
