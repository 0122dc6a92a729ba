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

// MongoAuthRepository implements the AuthRepository interface using MongoDB
type MongoAuthRepository struct {
	usersCollection    *mongo.Collection
	sessionsCollection *mongo.Collection
}

// NewMongoAuthRepository creates a new MongoDB auth repository
func NewMongoAuthRepository(db *mongo.Database) *MongoAuthRepository {
	return &MongoAuthRepository{
		usersCollection:    db.Collection("users"),
		sessionsCollection: db.Collection("sessions"),
	}
}

// EnsureIndexes creates the unique email index, the id index and the
// session expiry TTL index.
func (r *MongoAuthRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.usersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}

	_, err = r.sessionsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return err
}

// CreateUser creates a new user in the database
func (r *MongoAuthRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.usersCollection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user by email
func (r *MongoAuthRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	return r.findUser(ctx, bson.M{"email": email})
}

// GetUserByID retrieves a user by ID
func (r *MongoAuthRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	return r.findUser(ctx, bson.M{"id": id})
}

func (r *MongoAuthRepository) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.usersCollection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateSession creates a new session
func (r *MongoAuthRepository) CreateSession(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := r.sessionsCollection.InsertOne(ctx, session)
	return err
}

// GetSessionByID retrieves a session by ID
func (r *MongoAuthRepository) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.sessionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ExtendSession moves a session's expiry forward after a token refresh.
func (r *MongoAuthRepository) ExtendSession(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := r.sessionsCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"expires_at": expiresAt, "refreshed_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// DeleteSession deletes a session by ID
func (r *MongoAuthRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.sessionsCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// DeleteUserSessions deletes every session of a user.
func (r *MongoAuthRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.sessionsCollection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

var _ repository.AuthRepository = (*MongoAuthRepository)(nil)
