package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
)

const (
	// CookieName carries the session id for browser clients.
	CookieName = "sid"
	// HeaderName carries the session id for API clients.
	HeaderName = "X-Session-ID"

	localsKey = "session"
)

// Current returns the session attached to the request by the session middleware.
func Current(c *fiber.Ctx) (Session, bool) {
	sess, ok := c.Locals(localsKey).(Session)
	return sess, ok
}

// Attach stores sess on the request.
func Attach(c *fiber.Ctx, sess Session) {
	c.Locals(localsKey, sess)
}

// IDFromRequest extracts the session id from the header or cookie.
func IDFromRequest(c *fiber.Ctx) string {
	if sid := c.Get(HeaderName); sid != "" {
		return sid
	}
	return c.Cookies(CookieName)
}

// Handler exposes sign-up, login and logout.
type Handler struct {
	service *Service
	ttl     time.Duration
}

// NewHandler constructs a session HTTP handler.
func NewHandler(service *Service, ttl time.Duration) *Handler {
	return &Handler{service: service, ttl: ttl}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUp registers a wallet user.
func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.service.SignUp(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return authError(err)
	}
	h.setCookie(c, sess.ID)
	return c.Status(http.StatusCreated).JSON(sess)
}

// LogIn opens a session.
func (h *Handler) LogIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.service.LogIn(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return authError(err)
	}
	h.setCookie(c, sess.ID)
	return c.Status(http.StatusOK).JSON(sess)
}

// LogOut closes the current session.
func (h *Handler) LogOut(c *fiber.Ctx) error {
	sess, ok := Current(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	err := h.service.LogOut(c.UserContext(), sess)
	c.ClearCookie(CookieName)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Me returns the current session.
func (h *Handler) Me(c *fiber.Ctx) error {
	sess, ok := Current(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	return c.JSON(sess)
}

func (h *Handler) setCookie(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(h.ttl),
	})
}

func authError(err error) error {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		return fiber.NewError(http.StatusUnauthorized, apiErr.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
