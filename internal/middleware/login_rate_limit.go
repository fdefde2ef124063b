package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	loginFailurePrefix = "rl:login:"
	loginFailureWindow = time.Minute
)

// LoginRateLimit locks a username (or the caller's IP when no username is
// given) out of login after maxFailures rejected attempts within a minute.
// A successful login clears the count.
func LoginRateLimit(cache *redis.Client, maxFailures int, logger *slog.Logger) fiber.Handler {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		key := loginFailurePrefix + loginSubject(c)
		ctx := c.UserContext()

		failures, err := cache.Get(ctx, key).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.WarnContext(ctx, "login rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if failures >= maxFailures {
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}

		err = c.Next()
		switch status := responseStatus(c, err); {
		case status >= 200 && status < 300:
			if delErr := cache.Del(ctx, key).Err(); delErr != nil {
				logger.WarnContext(ctx, "clear login failures", slog.Any("error", delErr))
			}
		case status >= 400 && status < 500:
			if recErr := recordLoginFailure(ctx, cache, key); recErr != nil {
				logger.WarnContext(ctx, "record login failure", slog.Any("error", recErr))
			}
		}
		return err
	}
}

func recordLoginFailure(ctx context.Context, cache *redis.Client, key string) error {
	_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, loginFailureWindow)
		return nil
	})
	return err
}

func loginSubject(c *fiber.Ctx) string {
	var req struct {
		Username string `json:"username"`
	}
	_ = c.BodyParser(&req)
	if who := strings.ToLower(strings.TrimSpace(req.Username)); who != "" {
		return who
	}
	return c.IP()
}

// responseStatus is the status the error handler will write for err.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return http.StatusInternalServerError
}
