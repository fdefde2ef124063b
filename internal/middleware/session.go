package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/session"
)

// RequireSession rehydrates the caller's session from storage and attaches it
// to the request.
func RequireSession(sessions *session.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := session.IDFromRequest(c)
		if sid == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing session")
		}
		sess, status := sessions.Rehydrate(c.UserContext(), sid)
		switch status {
		case session.StatusPresent:
			if !sess.Valid() {
				return fiber.NewError(http.StatusUnauthorized, "session expired")
			}
			session.Attach(c, sess)
			return c.Next()
		case session.StatusUnavailable:
			return fiber.NewError(http.StatusServiceUnavailable, "session storage unavailable")
		default:
			return fiber.NewError(http.StatusUnauthorized, "session expired")
		}
	}
}

// RequireIssuer admits only the listed usernames. An empty list admits every
// authenticated user.
func RequireIssuer(usernames []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return func(c *fiber.Ctx) error {
		sess, ok := session.Current(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing session")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if _, ok := allowed[strings.ToLower(sess.Username)]; !ok {
			return fiber.NewError(http.StatusForbidden, "issuer access required")
		}
		return c.Next()
	}
}
