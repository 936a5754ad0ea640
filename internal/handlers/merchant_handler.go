package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"PayGate/internal/middleware"
	"PayGate/internal/store"
)

// GetMerchantProfile returns the authenticated merchant
func (h *Handler) GetMerchantProfile(c *fiber.Ctx) error {
	merchant, err := h.merchants.FindMerchant(c.UserContext(), middleware.MerchantID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Merchant not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to retrieve merchant",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"merchant": merchant,
	})
}

// GetMerchantTransactions lists the merchant's recent transactions
func (h *Handler) GetMerchantTransactions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", store.DefaultListLimit)

	items, err := h.payments.MerchantTransactions(c.UserContext(), middleware.MerchantID(c), limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": items,
		"count":        len(items),
	})
}
