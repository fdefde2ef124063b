package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dl-issuer/dl_issuer/internal/logging"
)

func newLoginApp(t *testing.T, limit int) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, limit, logging.Discard()), func(c *fiber.Ctx) error {
		var req struct {
			Password string `json:"password"`
		}
		_ = c.BodyParser(&req)
		if req.Password != "secret" {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return c.SendStatus(http.StatusOK)
	})
	return app, mr
}

func login(t *testing.T, app *fiber.App, username, password string) int {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestLoginRateLimitPerUsername(t *testing.T) {
	app, mr := newLoginApp(t, 2)

	for i := 0; i < 2; i++ {
		if got := login(t, app, "Alice", "wrong"); got != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401 got %d", i+1, got)
		}
	}
	if got := login(t, app, "alice", "secret"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", got)
	}
	if got := login(t, app, "bob", "secret"); got != http.StatusOK {
		t.Fatalf("other users are not limited, got %d", got)
	}
	if ttl := mr.TTL(loginFailurePrefix + "alice"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected failure count to expire within a minute, ttl %s", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if got := login(t, app, "alice", "secret"); got != http.StatusOK {
		t.Fatalf("expected lockout to lapse, got %d", got)
	}
}

func TestLoginRateLimitIgnoresSuccessfulLogins(t *testing.T) {
	app, mr := newLoginApp(t, 2)

	for i := 0; i < 6; i++ {
		if got := login(t, app, "alice", "secret"); got != http.StatusOK {
			t.Fatalf("login %d: expected 200 got %d", i+1, got)
		}
	}

	if got := login(t, app, "alice", "wrong"); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", got)
	}
	if got := login(t, app, "alice", "secret"); got != http.StatusOK {
		t.Fatalf("expected 200 got %d", got)
	}
	if mr.Exists(loginFailurePrefix + "alice") {
		t.Fatalf("successful login must clear the failure count")
	}
}
