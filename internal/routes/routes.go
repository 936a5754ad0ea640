package routes

import (
	"github.com/gofiber/fiber/v2"

	"PayGate/internal/handlers"
	"PayGate/internal/middleware"
	"PayGate/internal/store"
)

type Config struct {
	JWTSecret string
	Merchants store.MerchantStore
}

func SetupRoutes(app *fiber.App, h *handlers.Handler, cfg Config) {
	// Health check
	app.Get("/", h.Welcome)
	app.Get("/api/health", h.Health)

	v1 := app.Group("/api/v1")

	SetupWebhookRoutes(v1, h)
	SetupPaymentRoutes(v1, h, middleware.APIKey(cfg.Merchants))
	SetupMerchantRoutes(v1, h, middleware.Protected(cfg.JWTSecret))
}
