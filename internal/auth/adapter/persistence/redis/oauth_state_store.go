package redis

import (
	"context"
	"errors"
	"time"

	"photoshoot-studio/internal/auth/domain/repository"

	goredis "github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "oauth_state:"

// ErrStateNotFound is returned when a state was never issued, already used or expired.
var ErrStateNotFound = errors.New("oauth state not found")

// OAuthStateStore keeps OAuth state values in Redis with a TTL.
type OAuthStateStore struct {
	client goredis.Cmdable
}

// NewOAuthStateStore creates a state store over client.
func NewOAuthStateStore(client goredis.Cmdable) *OAuthStateStore {
	return &OAuthStateStore{client: client}
}

// Save binds state to provider for ttl.
func (s *OAuthStateStore) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	return s.client.Set(ctx, oauthStatePrefix+state, provider, ttl).Err()
}

// Consume returns the provider bound to state and deletes the key in the same round trip.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (string, error) {
	provider, err := s.client.GetDel(ctx, oauthStatePrefix+state).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", err
	}
	return provider, nil
}

var _ repository.OAuthStateStore = (*OAuthStateStore)(nil)
