package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dossier/pkg/platform/sentinel"
)

// Redis keeps the slot under one Redis key with no expiry.
type Redis struct {
	client *redis.Client
	key    string
}

// RedisOption configures a Redis slot.
type RedisOption func(*Redis)

// WithRedisKey overrides the key holding the value.
func WithRedisKey(key string) RedisOption {
	return func(s *Redis) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedis constructs a Redis-backed slot. The client lifecycle is managed
// by the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Redis) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *Redis) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
