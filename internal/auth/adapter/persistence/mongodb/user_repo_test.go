package mongodb_test

import (
	"context"
	"testing"
	"time"

	"photoshoot-studio/internal/auth/adapter/persistence/mongodb"
	"photoshoot-studio/internal/auth/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoAuthRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create user", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := &model.User{ID: "u1", Email: "a@b.co", Provider: "password"}
		require.NoError(mt, repo.CreateUser(context.Background(), user))
		assert.False(mt, user.CreatedAt.IsZero())
	})

	mt.Run("create user duplicate email", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := repo.CreateUser(context.Background(), &model.User{ID: "u2", Email: "a@b.co"})
		assert.ErrorIs(mt, err, model.ErrEmailTaken)
	})

	mt.Run("create user nil", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		assert.EqualError(mt, repo.CreateUser(context.Background(), nil), "user cannot be nil")
	})

	mt.Run("get user by email", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "id", Value: "u1"},
			{Key: "email", Value: "a@b.co"},
			{Key: "password_hash", Value: "hash"},
		}))

		user, err := repo.GetUserByEmail(context.Background(), "a@b.co")
		require.NoError(mt, err)
		assert.Equal(mt, "u1", user.ID)
		assert.Equal(mt, "hash", user.PasswordHash)
	})

	mt.Run("get user not found", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		ns := mt.DB.Name() + ".users"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetUserByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, model.ErrUserNotFound)
	})

	mt.Run("empty lookups", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		_, err := repo.GetUserByEmail(context.Background(), "")
		assert.EqualError(mt, err, "email cannot be empty")
		_, err = repo.GetUserByID(context.Background(), "")
		assert.EqualError(mt, err, "user ID cannot be empty")
	})

	mt.Run("extend missing session", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		err := repo.ExtendSession(context.Background(), "s1", time.Now().Add(time.Hour))
		assert.ErrorIs(mt, err, model.ErrSessionNotFound)
	})

	mt.Run("delete missing session", func(mt *mtest.T) {
		repo := mongodb.NewMongoAuthRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := repo.DeleteSession(context.Background(), "s1")
		assert.ErrorIs(mt, err, model.ErrSessionNotFound)
	})
}

func TestMongoProfileRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := mongodb.NewMongoProfileRepository(mt.DB)
		ns := mt.DB.Name() + ".profiles"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "username", Value: "runway_queen"},
			{Key: "avatar_url", Value: "https://img/a.png"},
		}))

		p, err := repo.GetProfile(context.Background(), "u1")
		require.NoError(mt, err)
		assert.Equal(mt, "runway_queen", p.Username)
		assert.Equal(mt, "https://img/a.png", p.AvatarURL)
	})

	mt.Run("absent", func(mt *mtest.T) {
		repo := mongodb.NewMongoProfileRepository(mt.DB)
		ns := mt.DB.Name() + ".profiles"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetProfile(context.Background(), "u1")
		assert.ErrorIs(mt, err, model.ErrProfileNotFound)
	})

	mt.Run("upsert requires user id", func(mt *mtest.T) {
		repo := mongodb.NewMongoProfileRepository(mt.DB)
		assert.Error(mt, repo.UpsertProfile(context.Background(), &model.Profile{}))
	})
}
