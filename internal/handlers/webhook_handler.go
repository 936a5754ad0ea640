package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	"PayGate/internal/services"
)

// Provider signature headers, in order of preference.
var signatureHeaders = []string{"X-Signature", "X-Mesomb-Signature", "Signature", "X-Hub-Signature"}

// MeSombWebhook receives provider status callbacks.
func (h *Handler) MeSombWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer once the handler returns.
	body := bytes.Clone(c.Body())

	sig := ""
	for _, name := range signatureHeaders {
		if v := c.Get(name); v != "" {
			sig = v
			break
		}
	}

	out, err := h.webhooks.Handle(c.UserContext(), services.Inbound{
		Body:              body,
		Signature:         sig,
		InternalSignature: c.Get(services.HeaderInternalSignature),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   out.Message,
		"action":    out.Action,
		"reference": out.Reference,
		"status":    out.Status,
	})
}
