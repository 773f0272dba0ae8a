package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safestreets/tipline/controllers"
	"github.com/safestreets/tipline/middlewares"
)

func RegisterSystemRoutes(g fiber.Router) {
	// Private
	g.Use(middlewares.AdminProtected())
	g.Post("/cache/purge", controllers.PurgeCache).Name("api.system.cache.purge")
}
