package routes

import (
	"github.com/gofiber/fiber/v2"

	"PayGate/internal/handlers"
)

func SetupPaymentRoutes(api fiber.Router, h *handlers.Handler, apiKey fiber.Handler) {
	payments := api.Group("/payments", apiKey)

	payments.Post("/initiate", h.InitiatePayment)
	payments.Get("/status/:reference", h.GetPaymentStatus)
}
