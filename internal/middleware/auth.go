package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"PayGate/internal/store"
)

const localMerchantID = "merchant_id"

// Protected verifies the dashboard bearer token and exposes its merchant_id claim.
func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get token from Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}
		if secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication is not configured",
			})
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		// Parse and validate token
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		// Extract claims
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}
		merchantID, _ := claims["merchant_id"].(string)
		if merchantID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has no merchant",
			})
		}
		c.Locals(localMerchantID, merchantID)

		return c.Next()
	}
}

// APIKey authenticates server-to-server calls with the merchant's X-Api-Key.
func APIKey(merchants store.MerchantStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Api-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key",
			})
		}

		merchant, err := merchants.FindMerchantByAPIKey(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to authenticate",
			})
		}
		if !merchant.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Merchant account is disabled",
			})
		}

		c.Locals(localMerchantID, merchant.ID)
		return c.Next()
	}
}

// MerchantID returns the authenticated merchant id, or "" outside the auth middleware.
func MerchantID(c *fiber.Ctx) string {
	id, _ := c.Locals(localMerchantID).(string)
	return id
}
