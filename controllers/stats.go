package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/rueidis"
	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/helpers"
	"github.com/safestreets/tipline/utils"
)

const (
	statsSummaryCacheKey string        = "stats:summary"
	statsSummaryCacheTTL time.Duration = time.Minute
)

// GetStatsSummary serves the dashboard headline numbers. The aggregation runs
// over the full report list, so the result is cached for a short window.
func GetStatsSummary(c *fiber.Ctx) error {
	cached, err := app.Cache().DoCache(
		context.Background(),
		app.Cache().B().Get().Key(statsSummaryCacheKey).Cache(),
		statsSummaryCacheTTL,
	).ToString()
	if err != nil && !errors.Is(err, rueidis.Nil) {
		slog.Warn(fmt.Sprintf("Could not get cached stats summary: %v", err))
	}

	if len(cached) > 0 {
		summary := fiber.Map{}

		if err := json.Unmarshal([]byte(cached), &summary); err != nil {
			slog.Warn(fmt.Sprintf("Could not decode cached stats summary: %v", err))
		} else {
			return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": summary})
		}
	}

	reports, err := helpers.AllReports(app.DB())
	if err != nil {
		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Could not list reports: %v", err))

		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not get statistics."}})
	}

	summary := fiber.Map{
		"total":  len(reports),
		"status": helpers.CountByStatus(reports),
		"types":  helpers.CountByType(reports),
	}

	if payload, err := json.Marshal(summary); err == nil {
		if err := app.Cache().Do(
			context.Background(),
			app.Cache().B().Set().Key(statsSummaryCacheKey).Value(string(payload)).Ex(statsSummaryCacheTTL).Build(),
		).Error(); err != nil {
			slog.Error(fmt.Sprintf("Could not save stats summary to cache: %v", err))
		}
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": summary})
}

// GetStatsTimeline buckets report volume over a named range. Ranges of about
// a year switch from daily to monthly buckets.
func GetStatsTimeline(c *fiber.Ctx) error {
	now := time.Now().In(utils.DefaultLocation())

	var rangeStart time.Time

	switch r := c.Query("range", "1month"); r {
	case "1week":
		rangeStart = now.AddDate(0, 0, -7)
	case "1month":
		rangeStart = now.AddDate(0, -1, 0)
	case "1year":
		rangeStart = now.AddDate(-1, 0, 0)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"The requested range is invalid."}})
	}

	reports, err := helpers.AllReports(app.DB())
	if err != nil {
		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Could not list reports: %v", err))

		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not get statistics."}})
	}

	buckets := helpers.BucketByTime(reports, rangeStart, now)

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": buckets, "range": c.Query("range", "1month")})
}

func invalidateStatsCache() {
	if err := app.Cache().Do(context.Background(), app.Cache().B().Del().Key(statsSummaryCacheKey).Build()).Error(); err != nil {
		slog.Warn(fmt.Sprintf("Could not invalidate stats cache: %v", err))
	}
}
