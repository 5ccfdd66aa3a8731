package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	cerrors "quickbasket/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis strings
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store that keeps every key under prefix
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value under key
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, mapRedisError(err)
	}
	return v, true, nil
}

// Set stores value under key without expiry
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return mapRedisError(err)
	}
	return nil
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return mapRedisError(err)
	}
	return nil
}

// Ping verifies the server is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageUnavailable, err)
	}
	return nil
}

func mapRedisError(err error) error {
	// maxmemory reached with a noeviction policy
	if strings.HasPrefix(err.Error(), "OOM ") {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageQuotaExceeded, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("redis store error: %w", err)
}
