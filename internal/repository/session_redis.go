package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "goodads:session:"

// RedisSessionStorage shares sessions between instances. Every write renews the TTL.
type RedisSessionStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStorage(client *redis.Client, ttl time.Duration) *RedisSessionStorage {
	return &RedisSessionStorage{client: client, ttl: ttl}
}

func sessionKey(clientID, key string) string {
	return fmt.Sprintf("%s%s:%s", sessionKeyPrefix, clientID, key)
}

func (s *RedisSessionStorage) Get(ctx context.Context, clientID, key string) (string, error) {
	v, err := s.client.Get(ctx, sessionKey(clientID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get session: %w", err)
	}
	return v, nil
}

func (s *RedisSessionStorage) Set(ctx context.Context, clientID, key, value string) error {
	if err := s.client.Set(ctx, sessionKey(clientID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStorage) Remove(ctx context.Context, clientID, key string) error {
	if err := s.client.Del(ctx, sessionKey(clientID, key)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
