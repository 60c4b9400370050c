package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore adapts github.com/redis/go-redis/v9 to the Store contract.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses url (a redis:// connection string) and returns a
// ready-to-use RedisStore. It does not ping the server; call Ping
// explicitly during startup to fail fast on a bad connection.
func NewRedisStore(url string, dialTimeout, readTimeout, writeTimeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse redis url: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout
	opts.WriteTimeout = writeTimeout

	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// Client exposes the underlying *redis.Client for components that need raw
// list operations (the queue consumer's BLPOP), rather than duplicating a
// second connection.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", domain.ErrKVTransport, key, err)
	}
	return v, nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: setnx %s: %v", domain.ErrKVTransport, key, err)
	}
	return ok, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrKVTransport, key, err)
	}
	return nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: ttl %s: %v", domain.ErrKVTransport, key, err)
	}
	return d, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", domain.ErrKVTransport, key, err)
	}
	return nil
}

func (s *RedisStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", domain.ErrKVTransport, prefix, err)
	}
	return keys, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrKVTransport, err)
	}
	return nil
}
