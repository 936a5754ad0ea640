package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"PayGate/internal/services"
	"PayGate/internal/store"
)

// Handler carries the services behind every HTTP endpoint.
type Handler struct {
	payments  *services.PaymentService
	webhooks  *services.WebhookProcessor
	merchants store.MerchantStore
	status    HealthInfo
}

type HealthInfo struct {
	Service            string `json:"service"`
	Version            string `json:"version"`
	ProviderMode       string `json:"provider_mode"`
	ProviderConfigured bool   `json:"provider_configured"`
	WebhookSecretSet   bool   `json:"webhook_secret_configured"`
}

func New(payments *services.PaymentService, webhooks *services.WebhookProcessor, merchants store.MerchantStore, status HealthInfo) *Handler {
	return &Handler{
		payments:  payments,
		webhooks:  webhooks,
		merchants: merchants,
		status:    status,
	}
}

// Welcome is the root liveness endpoint.
func (h *Handler) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome to " + h.status.Service + " API",
		"status":  "running",
		"version": h.status.Version,
	})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": h.status,
	})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindMissingSignature, services.KindProvider:
		return fiber.StatusBadRequest
	case services.KindSignature:
		return fiber.StatusUnauthorized
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindDelivery:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the JSON error response for a service error.
func respondError(c *fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	code := statusFor(kind)

	body := fiber.Map{"success": false}

	var se *services.Error
	if errors.As(err, &se) {
		body["error"] = se.Message
		if se.Reference != "" {
			body["reference"] = se.Reference
		}
		if kind == services.KindProvider && se.Err != nil {
			body["details"] = se.Err.Error()
		}
	} else {
		body["error"] = "Internal server error"
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(body)
}

// ErrorHandler is the fiber fallback for errors no handler turned into a response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Printf("❌ Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
