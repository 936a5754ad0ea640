package routes

import (
	"github.com/gofiber/fiber/v2"

	"PayGate/internal/handlers"
)

func SetupMerchantRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	merchant := api.Group("/merchant", protected)

	merchant.Get("/profile", h.GetMerchantProfile)
	merchant.Get("/transactions", h.GetMerchantTransactions)
}
