package redis

import (
	"context"
	"errors"

	"photoshoot-studio/internal/session/domain/repository"

	goredis "github.com/redis/go-redis/v9"
)

const flagPrefix = "flags:"

// FlagStore keeps durable string flags in Redis without expiry.
type FlagStore struct {
	client goredis.Cmdable
}

// NewFlagStore creates a flag store over client.
func NewFlagStore(client goredis.Cmdable) *FlagStore {
	return &FlagStore{client: client}
}

// Get returns the flag value; ok is false when the key was never set.
func (s *FlagStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("flag key cannot be empty")
	}
	value, err := s.client.Get(ctx, flagPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key with no TTL.
func (s *FlagStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("flag key cannot be empty")
	}
	return s.client.Set(ctx, flagPrefix+key, value, 0).Err()
}

var _ repository.FlagStore = (*FlagStore)(nil)
