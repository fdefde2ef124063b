package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/session"
)

// RegisterAuthRoutes wires sign-up, login, logout and the session lookup.
func RegisterAuthRoutes(r fiber.Router, h *session.Handler, rateLimiter, requireSession fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", h.SignUp)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.LogIn)
	} else {
		group.Post("/login", h.LogIn)
	}
	group.Post("/logout", requireSession, h.LogOut)
	r.Get("/session", requireSession, h.Me)
}
