package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const guardPrefix = "approval:inflight:"

// releaseScript deletes the lock only while it still carries the holder's token.
var releaseScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Guard admits at most one approval action per application at a time.
type Guard interface {
	Acquire(ctx context.Context, docID string) (release func(), err error)
}

// RedisGuard holds the lock in Redis so it spans every instance.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisGuard builds a Redis-backed guard. ttl bounds how long a crashed
// holder keeps the application locked.
func NewRedisGuard(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{client: client, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context, docID string) (func(), error) {
	key := guardPrefix + docID
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire approval guard: %w", err)
	}
	if !ok {
		return nil, ErrInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		released, err := releaseScript.Run(releaseCtx, g.client, []string{key}, token).Int()
		if err != nil {
			g.logger.Warn("release approval guard", slog.String("doc_id", docID), slog.Any("error", err))
			return
		}
		if released == 0 {
			g.logger.Warn("approval guard expired before release", slog.String("doc_id", docID))
		}
	}, nil
}

// LocalGuard is an in-process guard for single instance deployments.
type LocalGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewLocalGuard builds an in-process guard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{inflight: make(map[string]struct{})}
}

func (g *LocalGuard) Acquire(_ context.Context, docID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[docID]; busy {
		return nil, ErrInProgress
	}
	g.inflight[docID] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inflight, docID)
		g.mu.Unlock()
	}, nil
}
