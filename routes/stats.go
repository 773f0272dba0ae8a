package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safestreets/tipline/controllers"
)

func RegisterStatsRoutes(g fiber.Router) {
	g.Get("/summary", controllers.GetStatsSummary).Name("api.stats.summary")
	g.Get("/timeline", controllers.GetStatsTimeline).Name("api.stats.timeline")
}
