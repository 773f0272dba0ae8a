package controllers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/helpers"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/tasks"
	"github.com/safestreets/tipline/utils"
)

// publicReport is the community-facing projection of a report. Investigation
// notes and suspect details never leave the admin surface.
type publicReport struct {
	ID          uuid.UUID           `json:"id"`
	ReportType  string              `json:"report_type"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	Status      models.ReportStatus `json:"status"`
	EvidenceURL *string             `json:"evidence_url"`
	Timestamp   string              `json:"timestamp"`
}

func toPublicReport(r models.Report) publicReport {
	return publicReport{
		ID:          r.ID,
		ReportType:  r.ReportType,
		Description: r.Description,
		Location:    r.Location,
		Status:      models.NormalizeStatus(string(r.Status)),
		EvidenceURL: r.EvidenceURL,
		Timestamp:   r.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// GetReports serves the public listing: the full snapshot is fetched once and
// filtering plus ordering happen in memory.
func GetReports(c *fiber.Ctx) error {
	reports, err := helpers.AllReports(app.DB())
	if err != nil {
		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Could not list reports: %v", err))

		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not get reports."}})
	}

	filtered := helpers.FilterReports(reports, helpers.ReportFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Type:   c.Query("type"),
	})

	sorted := helpers.SortReports(filtered, c.Query("sort_order", helpers.DESC))

	items := make([]publicReport, 0, len(sorted))
	for _, r := range sorted {
		items = append(items, toPublicReport(r))
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": items, "total": len(items)})
}

// GetAllReports is the cursor-paginated admin listing with the unredacted
// records.
func GetAllReports(c *fiber.Ctx) error {
	query := app.DB().Model(&models.Report{})

	if search := c.Query("search"); utils.IsValidSearch(search) {
		query = query.Where(
			"(description ILIKE @search OR location ILIKE @search)",
			sql.Named("search", "%"+search+"%"),
		)
	}

	if status := c.Query("status"); len(status) > 0 && status != "all" {
		query = query.Where("status = @status", sql.Named("status", string(models.NormalizeStatus(status))))
	}

	if reportType := c.Query("type"); len(reportType) > 0 && reportType != "all" {
		query = query.Where("report_type = @rtype", sql.Named("rtype", reportType))
	}

	return helpers.PaginateQuery([]models.Report{}, query, c, helpers.PaginatedItemOpts{RouteName: "api.reports.all"})
}

func GetReport(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil || !utils.IsValidUuid(id) {
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"The report ID is invalid."}})
	}

	report, err := helpers.GetReport(app.DB(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(&fiber.Map{"error": []string{"The report does not exist."}})
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": toPublicReport(*report)})
}

// PatchReportStatus cycles the report to its next lifecycle state and records
// who changed it. The staff notification failing does not fail the update.
func PatchReportStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil || !utils.IsValidUuid(id) {
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"The report ID is invalid."}})
	}

	report, err := helpers.UpdateReportStatus(app.DB(), id)
	if err != nil {
		if errors.Is(err, helpers.ErrStatusLocked) {
			return c.Status(fiber.StatusConflict).JSON(&fiber.Map{"error": []string{err.Error()}})
		}

		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Could not update status of report '%s': %v", id, err))

		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not update the report status."}})
	}

	invalidateStatsCache()

	if err := tasks.NewEmail(
		helpers.EmailOpts{
			Subject:      "Incident report status changed",
			TemplateName: "status_changed",
			IsInternal:   true,
			ToList:       helpers.GetStaffEmails(),
		},
		map[string]interface{}{
			"ReportID":   report.ID.String(),
			"ReportType": report.ReportType,
			"Status":     string(report.Status),
		},
	); err != nil {
		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Error sending email: %v", err))
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": report})
}
