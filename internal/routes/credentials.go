package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

// RegisterCredentialRoutes exposes the holder's wallet credentials.
func RegisterCredentialRoutes(r fiber.Router, sessions *session.Service, requireSession fiber.Handler) {
	group := r.Group("/credentials")

	group.Get("/", requireSession, func(c *fiber.Ctx) error {
		sess, _ := session.Current(c)
		vcs, err := sessions.Client(sess).GetSavedVCs(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}
		if vcs == nil {
			vcs = []json.RawMessage{}
		}
		return c.JSON(fiber.Map{"credentials": vcs})
	})

	group.Delete("/:id", requireSession, func(c *fiber.Ctx) error {
		sess, _ := session.Current(c)
		if err := sessions.Client(sess).DeleteStoredVC(c.UserContext(), c.Params("id")); err != nil {
			return upstreamError(err)
		}
		return c.SendStatus(http.StatusNoContent)
	})

	group.Post("/verify", requireSession, func(c *fiber.Ctx) error {
		var req apiclient.VerifyInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if len(req.VerifiableCredentials) == 0 {
			return fiber.NewError(http.StatusBadRequest, "verifiableCredentials is required")
		}
		sess, _ := session.Current(c)
		out, err := sessions.Client(sess).VerifyCredentials(c.UserContext(), req)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(out)
	})
}

func upstreamError(err error) error {
	if apiclient.IsStatus(err, http.StatusNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return fiber.NewError(http.StatusBadGateway, err.Error())
}
