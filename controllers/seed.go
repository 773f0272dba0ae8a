package controllers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/utils"
	"gorm.io/gorm"
)

type seedReportInput struct {
	ReportType   string `json:"report_type"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	IncidentDate string `json:"incident_date"`
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
}

// defaultSeedReports mirrors the demo records used when the database starts
// empty. A couple of them carry legacy status labels on purpose to exercise
// normalization.
func defaultSeedReports() []seedReportInput {
	return []seedReportInput{
		{ReportType: models.ReportTypeTrafficking, Description: "Group exchanging small packages for cash on the corner, several nights in a row.", Location: "5th Ave and Pine St", IncidentDate: "2026-07-14", Status: "pending"},
		{ReportType: models.ReportTypeSuspicious, Description: "Unusual foot traffic in and out of the abandoned warehouse after midnight.", Location: "Dockside warehouse district", IncidentDate: "2026-07-20", Status: "processing"},
		{ReportType: models.ReportTypePossession, Description: "Found discarded syringes and baggies near the playground fence.", Location: "Riverside Park, north entrance", IncidentDate: "2026-08-02", Status: "solved"},
		{ReportType: models.ReportTypeManufacturing, Description: "Strong chemical odor coming from the garage, windows covered with foil.", Location: "Rear alley behind Maple Ct", IncidentDate: "2026-08-10", Status: "active"},
		{ReportType: models.ReportTypeDistribution, Description: "Driver making repeated short stops, passing items through the car window.", Location: "Bus terminal parking lot", IncidentDate: "2026-08-18", Status: "pending"},
	}
}

func (in seedReportInput) toReport() (*models.Report, error) {
	if !models.IsValidReportType(in.ReportType) {
		return nil, fmt.Errorf("The report type '%s' is invalid.", in.ReportType)
	}

	incidentDate, err := time.Parse(time.DateOnly, in.IncidentDate)
	if err != nil {
		return nil, fmt.Errorf("The incident date '%s' is invalid: %w", in.IncidentDate, err)
	}

	report := &models.Report{
		ReportType:   in.ReportType,
		Description:  in.Description,
		Location:     in.Location,
		IncidentDate: incidentDate,
		IsAnonymous:  true,
		Status:       models.NormalizeStatus(in.Status),
	}

	if len(in.Timestamp) > 0 {
		createdAt, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("The timestamp '%s' is invalid: %w", in.Timestamp, err)
		}

		report.CreatedAt = createdAt
	}

	return report, nil
}

// PostSeedReports loads demo reports, either the built-in fixtures or the
// list sent in the request body. Seeding only runs in debug deployments.
func PostSeedReports(c *fiber.Ctx) error {
	if !utils.IsDebug() {
		return c.Status(fiber.StatusForbidden).JSON(&fiber.Map{"error": []string{"Seeding is only available in debug mode."}})
	}

	input := []seedReportInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			slog.Error(fmt.Sprintf("Error parsing input data: %v", err))
			return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Invalid seed data."}})
		}
	}

	if len(input) < 1 {
		input = defaultSeedReports()
	}

	reports := make([]*models.Report, 0, len(input))

	for _, in := range input {
		report, err := in.toReport()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{err.Error()}})
		}

		reports = append(reports, report)
	}

	if err := app.DB().Transaction(func(tx *gorm.DB) error {
		for _, report := range reports {
			if err := tx.Create(report).Error; err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Could not seed reports: %v", err))

		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not seed reports."}})
	}

	invalidateStatsCache()

	return c.Status(fiber.StatusCreated).JSON(&fiber.Map{"data": fiber.Map{"created": len(reports)}})
}
