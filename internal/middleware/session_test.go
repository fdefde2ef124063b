package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
	"github.com/dl-issuer/dl_issuer/internal/logging"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

type downKV struct{}

func (downKV) Get(context.Context, string) (string, error)               { return "", errors.New("down") }
func (downKV) Set(context.Context, string, string, time.Duration) error { return errors.New("down") }
func (downKV) Del(context.Context, string) error                         { return errors.New("down") }

func sessionApp(kv session.KV, issuers []string) (*fiber.App, *session.Service) {
	store := session.NewStore(kv, session.Sealer{}, time.Hour, logging.Discard())
	svc := session.NewService(apiclient.New(apiclient.Config{}, logging.Discard()), store)
	app := fiber.New()
	app.Use(RequireSession(svc), RequireIssuer(issuers))
	app.Get("/me", func(c *fiber.Ctx) error {
		sess, _ := session.Current(c)
		return c.SendString(sess.Username)
	})
	return app, svc
}

func status(t *testing.T, app *fiber.App, sid string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if sid != "" {
		req.Header.Set(session.HeaderName, sid)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestRequireSession(t *testing.T) {
	app, svc := sessionApp(session.NewMemoryKV(), nil)
	sess := svc.ClientSideLogIn(context.Background(), "alice", "token", "did")

	if got := status(t, app, ""); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", got)
	}
	if got := status(t, app, "unknown"); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown session, got %d", got)
	}
	if got := status(t, app, sess.ID); got != http.StatusOK {
		t.Fatalf("expected 200, got %d", got)
	}
}

func TestRequireSessionStorageDown(t *testing.T) {
	app, _ := sessionApp(downKV{}, nil)
	if got := status(t, app, "sid"); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
}

func TestRequireIssuer(t *testing.T) {
	app, svc := sessionApp(session.NewMemoryKV(), []string{"Issuer"})
	applicant := svc.ClientSideLogIn(context.Background(), "alice", "token", "did")
	issuer := svc.ClientSideLogIn(context.Background(), "issuer", "token", "did")

	if got := status(t, app, applicant.ID); got != http.StatusForbidden {
		t.Fatalf("expected 403 for applicant, got %d", got)
	}
	if got := status(t, app, issuer.ID); got != http.StatusOK {
		t.Fatalf("expected 200 for issuer, got %d", got)
	}
}
