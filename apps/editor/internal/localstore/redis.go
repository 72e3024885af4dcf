package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisIndexKey  = "quill:index"
	redisKeyPrefix = "quill:kv:"
)

// Compile-time check: *Redis implements Store.
var _ Store = (*Redis)(nil)

// Redis implements Store on a local Redis. Every key is mirrored into an
// index set so listing never has to SCAN with glob patterns.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Get returns the value for key.
func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return val, true, nil
}

// Set writes the value and adds key to the index.
func (s *Redis) Set(ctx context.Context, key, value string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, redisKeyPrefix+key, value, 0)
		p.SAdd(ctx, redisIndexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes the value and its index entry.
func (s *Redis) Delete(ctx context.Context, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, redisKeyPrefix+key)
		p.SRem(ctx, redisIndexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists indexed keys with the given prefix.
func (s *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}
	return filterPrefix(keys, prefix), nil
}

// Close closes the underlying client.
func (s *Redis) Close() error {
	return s.rdb.Close()
}
