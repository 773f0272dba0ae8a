package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safestreets/tipline/controllers"
	"github.com/safestreets/tipline/middlewares"
)

func RegisterReportRoutes(g fiber.Router) {
	// Public collection route on the parent, see RegisterSubmissionRoutes.
	g.Get("/reports", controllers.GetReports).Name("api.reports.index")

	reports := g.Group("/reports")

	// Private
	// Registered before the wildcard id routes so "/all" never parses as an id.
	reports.Get("/all", middlewares.AdminProtected(), controllers.GetAllReports).Name("api.reports.all")
	reports.Post("/seed", middlewares.AdminProtected(), controllers.PostSeedReports).Name("api.reports.seed")
	reports.Patch("/:id/status", middlewares.AdminProtected(), controllers.PatchReportStatus).Name("api.reports.status")

	// Public
	reports.Get("/:id", controllers.GetReport).Name("api.reports.show")
}
