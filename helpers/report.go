package helpers

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/utils"
	"gorm.io/gorm"
)

// ErrStatusLocked is returned when the resolved state is configured as
// terminal and an admin tries to cycle past it.
var ErrStatusLocked = errors.New("The report status can no longer be changed.")

// CreateReport persists a new report record and returns the assigned id.
// There is no retry: a failure is surfaced to the caller as-is.
func CreateReport(db *gorm.DB, r *models.Report) (uuid.UUID, error) {
	if err := db.Create(r).Error; err != nil {
		return uuid.Nil, fmt.Errorf("Could not persist report: %w", err)
	}

	return r.ID, nil
}

func GetReport(db *gorm.DB, id uuid.UUID) (*models.Report, error) {
	report := &models.Report{}

	if err := db.Model(&models.Report{}).
		Where("id = @id", sql.Named("id", id)).
		First(report).Error; err != nil {
		return nil, fmt.Errorf("Could not get report: %w", err)
	}

	return report, nil
}

// AllReports returns the full collection ordered newest first, the snapshot
// the in-memory aggregation and filtering functions work from.
func AllReports(db *gorm.DB) ([]models.Report, error) {
	reports := []models.Report{}

	if err := db.Model(&models.Report{}).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("Could not list reports: %w", err)
	}

	return reports, nil
}

// UpdateReportStatus cycles the identified report one step forward and
// records a human-readable description of the change.
func UpdateReportStatus(db *gorm.DB, id uuid.UUID) (*models.Report, error) {
	report := &models.Report{}

	if err := db.Model(&models.Report{}).
		Where("id = @id", sql.Named("id", id)).
		First(report).Error; err != nil {
		return nil, fmt.Errorf("Could not get report: %w", err)
	}

	if utils.LockResolvedStatus() && report.Status == models.StatusResolved {
		return report, ErrStatusLocked
	}

	next := NextStatus(report.Status)
	desc := fmt.Sprintf("Updated to %s by Admin", next)

	if err := db.Model(&models.Report{}).
		Where("id = @id", sql.Named("id", id)).
		Updates(map[string]interface{}{
			"status":             next,
			"status_description": desc,
		}).Error; err != nil {
		return nil, fmt.Errorf("Could not update report status: %w", err)
	}

	report.Status = next
	report.StatusDescription = &desc

	return report, nil
}
