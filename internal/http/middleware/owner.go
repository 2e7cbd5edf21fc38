package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	OwnerHeader     = "X-Owner-ID"
	OwnerQueryParam = "owner_id"
	ownerLocalsKey  = "owner_id"
	maxOwnerIDLen   = 255
)

// OwnerScope resolves the acting owner from the X-Owner-ID header or the
// owner_id query parameter and stores it in the request locals. Requests
// without one are rejected.
func OwnerScope(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ownerID := strings.TrimSpace(c.Get(OwnerHeader))
		if ownerID == "" {
			ownerID = strings.TrimSpace(c.Query(OwnerQueryParam))
		}

		if ownerID == "" {
			logger.Debug("Request without owner id", slog.String("path", c.Path()))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "owner id is required (X-Owner-ID header or owner_id query parameter)",
			})
		}
		if len(ownerID) > maxOwnerIDLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "owner id is too long",
			})
		}

		c.Locals(ownerLocalsKey, ownerID)
		return c.Next()
	}
}

// GetOwnerID returns the owner set by OwnerScope, or "".
func GetOwnerID(c *fiber.Ctx) string {
	ownerID, _ := c.Locals(ownerLocalsKey).(string)
	return ownerID
}
