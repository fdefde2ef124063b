package application

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/session"
)

// Handler exposes the application form endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an application HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type formResponse struct {
	Form           Form     `json:"form"`
	DrivingClasses []string `json:"drivingClasses"`
}

type submitResponse struct {
	Application Record `json:"application"`
	Alert       string `json:"alert"`
}

// Form returns the default form for the current session.
func (h *Handler) Form(c *fiber.Ctx) error {
	sess, _ := session.Current(c)
	return c.JSON(formResponse{Form: h.service.Defaults(sess), DrivingClasses: DrivingClasses})
}

// Submit stores a new application.
func (h *Handler) Submit(c *fiber.Ctx) error {
	sess, ok := session.Current(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	var form Form
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.Submit(c.UserContext(), sess, form)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": verr.Error(), "fields": verr.Fields})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(submitResponse{Application: rec, Alert: SubmittedAlert})
}
