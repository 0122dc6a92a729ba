package mongodb

import (
	"context"
	"errors"
	"time"

	"photoshoot-studio/internal/auth/domain/model"
	"photoshoot-studio/internal/auth/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfileRepository stores profiles keyed by user id.
type MongoProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoProfileRepository creates the profile store over the "profiles" collection.
func NewMongoProfileRepository(db *mongo.Database) *MongoProfileRepository {
	return &MongoProfileRepository{collection: db.Collection("profiles")}
}

// GetProfile returns the profile of userID or model.ErrProfileNotFound.
func (r *MongoProfileRepository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or replaces the username and avatar of a profile.
func (r *MongoProfileRepository) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	if profile == nil || profile.UserID == "" {
		return errors.New("profile user ID cannot be empty")
	}
	profile.UpdatedAt = time.Now().UTC()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": profile.UserID},
		bson.M{"$set": bson.M{
			"username":   profile.Username,
			"avatar_url": profile.AvatarURL,
			"updated_at": profile.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

var _ repository.ProfileRepository = (*MongoProfileRepository)(nil)
