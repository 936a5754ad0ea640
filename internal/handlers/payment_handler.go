package handlers

import (
	"github.com/gofiber/fiber/v2"

	"PayGate/internal/middleware"
	"PayGate/internal/services"
)

// InitiatePayment starts a collection for the authenticated merchant
func (h *Handler) InitiatePayment(c *fiber.Ctx) error {
	req := new(services.InitiateRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	req.MerchantID = middleware.MerchantID(c)

	res, err := h.payments.Initiate(c.UserContext(), *req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment initiated, confirm on your phone",
		"data":    res,
	})
}

// GetPaymentStatus returns the stored state of a transaction
func (h *Handler) GetPaymentStatus(c *fiber.Ctx) error {
	tx, err := h.payments.Status(c.UserContext(), middleware.MerchantID(c), c.Params("reference"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"reference":               tx.Reference,
			"amount":                  tx.Amount,
			"currency":                tx.Currency,
			"status":                  tx.Status,
			"operator":                tx.Operator,
			"provider_transaction_id": tx.ProviderTransactionID,
			"created_at":              tx.CreatedAt,
			"updated_at":              tx.UpdatedAt,
		},
	})
}
