package session

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by KV.Get for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// KV is the durable key-value storage backing sessions.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

const redisKeyPrefix = "session:v1:"

// RedisKV stores session values in Redis.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV builds a Redis-backed KV.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisKeyPrefix+key).Err()
}

// MemoryKV keeps session values in process memory with expiry. Used in
// development when no Redis is configured, and in tests.
type MemoryKV struct {
	c *gocache.Cache
}

// NewMemoryKV builds an in-memory KV; entries without a TTL never expire.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *MemoryKV) Del(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
