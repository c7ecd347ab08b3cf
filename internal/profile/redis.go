package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the profile record in a redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr, which is either host:port or a
// redis:// URL.
func NewRedisStore(addr, key string) (*RedisStore, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		opts, err = redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient creates a store from an existing client.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Profile, error) {
	rec, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if len(rec) == 0 {
		return Profile{}, ErrNotFound
	}
	return FromRecord(rec), nil
}

// Save replaces the hash so cleared fields do not linger.
func (s *RedisStore) Save(ctx context.Context, p Profile) error {
	rec := p.Record()
	values := make(map[string]any, len(rec))
	for k, v := range rec {
		values[k] = v
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Ping checks if redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
