package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safestreets/tipline/controllers"
	"github.com/safestreets/tipline/middlewares"
)

func RegisterSubmissionRoutes(g fiber.Router) {
	// The collection route goes on the parent: strict routing would otherwise
	// force a trailing slash on the group root.
	g.Post("/submissions", middlewares.SubmitLimiter(), controllers.PostSubmission).Name("api.submissions.start")

	sub := g.Group("/submissions", middlewares.SubmitLimiter())
	sub.Get("/:id", controllers.GetSubmission).Name("api.submissions.show")
	sub.Patch("/:id/fields", controllers.PatchSubmissionFields).Name("api.submissions.fields")
	sub.Post("/:id/advance", controllers.PostSubmissionAdvance).Name("api.submissions.advance")
	sub.Post("/:id/retreat", controllers.PostSubmissionRetreat).Name("api.submissions.retreat")
	sub.Put("/:id/evidence", controllers.PutSubmissionEvidence).Name("api.submissions.evidence.put")
	sub.Delete("/:id/evidence", controllers.DeleteSubmissionEvidence).Name("api.submissions.evidence.delete")
	sub.Post("/:id/finalize", middlewares.CaptchaProtected(), controllers.PostSubmissionFinalize).Name("api.submissions.finalize")
	sub.Delete("/:id", controllers.DeleteSubmission).Name("api.submissions.discard")
}
