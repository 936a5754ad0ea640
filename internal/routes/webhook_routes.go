package routes

import (
	"github.com/gofiber/fiber/v2"

	"PayGate/internal/handlers"
)

// Webhook routes are authenticated by their HMAC signature, not by a session.
func SetupWebhookRoutes(api fiber.Router, h *handlers.Handler) {
	webhooks := api.Group("/webhooks")
	webhooks.Post("/mesomb", h.MeSombWebhook)
}
