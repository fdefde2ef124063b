package approval

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/application"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

// Handler exposes the issuer review endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an approval HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns applications filtered by ?status=pending|approved|all.
func (h *Handler) List(c *fiber.Ctx) error {
	var filter application.Filter
	switch strings.ToLower(c.Query("status", "pending")) {
	case "pending":
		filter = application.Pending()
	case "approved":
		filter = application.Approved()
	case "all":
	default:
		return fiber.NewError(http.StatusBadRequest, "status must be pending, approved or all")
	}
	items, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"applications": items})
}

// Detail returns one application.
func (h *Handler) Detail(c *fiber.Ctx) error {
	view, err := h.service.Detail(c.UserContext(), c.Params("docId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(view)
}

// Approve runs the issuance workflow.
func (h *Handler) Approve(c *fiber.Ctx) error {
	sess, ok := session.Current(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	res, err := h.service.Approve(c.UserContext(), sess, c.Params("docId"))
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{
				"error":           stepErr.Error(),
				"failed_step":     stepErr.Step,
				"completed_steps": stepErr.Completed,
				"email_delivered": res.EmailDelivered,
			})
		}
		return mapError(err)
	}
	return c.JSON(res)
}

// Reject deletes the application.
func (h *Handler) Reject(c *fiber.Ctx) error {
	res, err := h.service.Reject(c.UserContext(), c.Params("docId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(res)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrFinalized), errors.Is(err, ErrInProgress):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
