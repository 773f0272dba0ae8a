package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/helpers"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/utils"
)

const (
	TaskDailyDigest string = "reports:digest"
)

// HandleDailyDigestTask emails the staff a summary of the last 24 hours:
// new report volume per day bucket plus the overall status distribution.
func HandleDailyDigestTask(ctx context.Context, t *asynq.Task) error {
	reports, err := helpers.AllReports(app.DB())
	if err != nil {
		return fmt.Errorf("Could not load reports for digest: %w", err)
	}

	now := time.Now().In(utils.DefaultLocation())
	buckets := helpers.BucketByTime(reports, now.AddDate(0, 0, -1), now)

	newReports := 0
	for _, b := range buckets {
		for _, n := range b.Counts {
			newReports += n
		}
	}

	statusCounts := helpers.CountByStatus(reports)

	//nolint:contextcheck
	return helpers.SendEmail(
		helpers.EmailOpts{
			Subject:      "Daily incident report digest",
			TemplateName: "daily_digest",
			IsInternal:   true,
			ToList:       helpers.GetStaffEmails(),
		},
		map[string]interface{}{
			"Date":         now.Format("2006-01-02"),
			"NewReports":   newReports,
			"TotalReports": len(reports),
			"Pending":      statusCounts[models.StatusPending],
			"Active":       statusCounts[models.StatusActive],
			"Resolved":     statusCounts[models.StatusResolved],
		},
	)
}
