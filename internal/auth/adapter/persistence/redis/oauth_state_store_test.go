package redis_test

import (
	"context"
	"testing"
	"time"

	authredis "photoshoot-studio/internal/auth/adapter/persistence/redis"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration tests")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestOAuthStateStore_ConsumeIsSingleUse(t *testing.T) {
	store := authredis.NewOAuthStateStore(newClient(t))
	ctx := context.Background()
	state := uuid.NewString()

	require.NoError(t, store.Save(ctx, state, "google", time.Minute))

	provider, err := store.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "google", provider)

	_, err = store.Consume(ctx, state)
	assert.ErrorIs(t, err, authredis.ErrStateNotFound)
}

func TestOAuthStateStore_UnknownState(t *testing.T) {
	store := authredis.NewOAuthStateStore(newClient(t))
	_, err := store.Consume(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, authredis.ErrStateNotFound)
}

func TestOAuthStateStore_RejectsEmptyState(t *testing.T) {
	store := authredis.NewOAuthStateStore(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}))
	assert.Error(t, store.Save(context.Background(), "", "google", time.Minute))
}
