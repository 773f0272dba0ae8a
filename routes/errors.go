package routes

import "github.com/gofiber/fiber/v2"

// RegisterErrorHandlers installs the fallback for unmatched paths. It must be
// registered after every route group.
func RegisterErrorHandlers(g fiber.Router) {
	g.Use(notFound)
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(&fiber.Map{"error": []string{"The requested resource could not be found."}})
}
