package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/application"
	"github.com/dl-issuer/dl_issuer/internal/approval"
)

// RegisterApplicationRoutes wires the applicant's form behind requireSession.
func RegisterApplicationRoutes(r fiber.Router, h *application.Handler, requireSession fiber.Handler) {
	group := r.Group("/applications")
	group.Get("/form", requireSession, h.Form)
	group.Post("/", requireSession, h.Submit)
}

// RegisterIssuerRoutes wires the issuer's review screens. guards run on every
// route; idempotency also guards the state changing actions.
func RegisterIssuerRoutes(r fiber.Router, h *approval.Handler, idempotency fiber.Handler, guards ...fiber.Handler) {
	group := r.Group("/issuer/applications")
	group.Get("/", chain(guards, h.List)...)
	group.Get("/:docId", chain(guards, h.Detail)...)
	group.Post("/:docId/approve", chain(guards, idempotency, h.Approve)...)
	group.Post("/:docId/reject", chain(guards, idempotency, h.Reject)...)
}

// chain attaches guards to a single route so unmatched paths still fall
// through to the 404 handler.
func chain(guards []fiber.Handler, handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+len(handlers))
	out = append(out, guards...)
	return append(out, handlers...)
}

// RegisterNotFound answers every unmatched route.
func RegisterNotFound(app *fiber.App) {
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "404"})
	})
}
