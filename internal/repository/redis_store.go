package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps values under prefix+key without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *logrus.Logger
}

func NewRedisStore(client *redis.Client, prefix string, logger *logrus.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, log: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Errorf("RedisStore: Failed to get %s%s: %v", s.prefix, key, err)
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		s.log.Errorf("RedisStore: Failed to set %s%s: %v", s.prefix, key, err)
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.log.Errorf("RedisStore: Failed to delete %s%s: %v", s.prefix, key, err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
