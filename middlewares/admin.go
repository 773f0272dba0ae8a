package middlewares

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/safestreets/tipline/utils"
)

// AdminProtected gates the staff surface behind a pre-shared API key.
// Account management itself is handled by the identity provider in front of
// this service, so the key only authenticates the dashboard deployment.
func AdminProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := utils.AdminAPIKey()
		provided := c.Get("X-Admin-Token")

		if len(key) < 1 || len(provided) < 1 {
			return c.Status(fiber.StatusForbidden).JSON(&fiber.Map{
				"error": []string{"You do not have permission to access this resource."},
			})
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(provided)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(&fiber.Map{
				"error": []string{"You do not have permission to access this resource."},
			})
		}

		return c.Next()
	}
}
