package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "dispatch:session"

// RedisStore keeps the pair as a single JSON value so several processes on
// one workstation share the same session.
type RedisStore struct {
	rdb redis.Cmdable
	key string
}

// NewRedisStore creates a store that writes the pair under key.
func NewRedisStore(rdb redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Save(ctx context.Context, pair CredentialPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context) (CredentialPair, bool, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CredentialPair{}, false, nil
	}
	if err != nil {
		return CredentialPair{}, false, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var pair CredentialPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return CredentialPair{}, false, fmt.Errorf("failed to decode session from redis: %w", err)
	}
	return pair, true, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}
