package helpers

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/safestreets/tipline/models"
)

// Everything in this file is pure: the dashboard and admin views fetch the
// report list once and derive all statistics in memory, so a fresh snapshot
// arriving mid-request simply produces a fresh derivation.

const monthlyGroupingThreshold = 360 * 24 * time.Hour

type TimeBucket struct {
	Period string                      `json:"period"`
	Counts map[models.ReportStatus]int `json:"counts"`
}

type ReportFilter struct {
	Search string `json:"search"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

func statusCycle() []models.ReportStatus {
	return []models.ReportStatus{models.StatusPending, models.StatusActive, models.StatusResolved}
}

func CountByStatus(reports []models.Report) map[models.ReportStatus]int {
	counts := map[models.ReportStatus]int{}

	for _, s := range statusCycle() {
		counts[s] = 0
	}

	for _, r := range reports {
		counts[models.NormalizeStatus(string(r.Status))]++
	}

	return counts
}

func CountByType(reports []models.Report) map[string]int {
	counts := map[string]int{}

	for _, r := range reports {
		counts[strings.ToLower(strings.TrimSpace(r.ReportType))]++
	}

	return counts
}

// BucketByTime groups reports created within [rangeStart, now] into periods:
// by month when the range spans roughly a year or more, by day otherwise.
// Reports without a usable creation time are skipped.
func BucketByTime(reports []models.Report, rangeStart, now time.Time) []TimeBucket {
	layout := "2006-01-02"

	if now.Sub(rangeStart) >= monthlyGroupingThreshold {
		layout = "2006-01"
	}

	grouped := map[string]map[models.ReportStatus]int{}

	for _, r := range reports {
		ts := r.CreatedAt

		if ts.IsZero() || ts.Before(rangeStart) || ts.After(now) {
			continue
		}

		key := ts.Format(layout)

		if _, ok := grouped[key]; !ok {
			grouped[key] = map[models.ReportStatus]int{}

			for _, s := range statusCycle() {
				grouped[key][s] = 0
			}
		}

		grouped[key][models.NormalizeStatus(string(r.Status))]++
	}

	buckets := make([]TimeBucket, 0, len(grouped))

	for period, counts := range grouped {
		buckets = append(buckets, TimeBucket{Period: period, Counts: counts})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period < buckets[j].Period
	})

	return buckets
}

func matchesAny(f string) bool {
	f = strings.TrimSpace(f)

	return len(f) < 1 || strings.EqualFold(f, "all")
}

// FilterReports applies the listing predicates: case-insensitive substring
// search against description, location and id, plus exact status and type
// matches. All predicates are AND-combined.
func FilterReports(reports []models.Report, f ReportFilter) []models.Report {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Report, 0, len(reports))

	for _, r := range reports {
		if len(search) > 0 {
			matched := strings.Contains(strings.ToLower(r.Description), search) ||
				strings.Contains(strings.ToLower(r.Location), search) ||
				strings.Contains(strings.ToLower(r.ID.String()), search)

			if !matched {
				continue
			}
		}

		if !matchesAny(f.Status) && models.NormalizeStatus(f.Status) != models.NormalizeStatus(string(r.Status)) {
			continue
		}

		if !matchesAny(f.Type) && !strings.EqualFold(strings.TrimSpace(f.Type), r.ReportType) {
			continue
		}

		out = append(out, r)
	}

	return out
}

// SortReports returns a new slice ordered by creation time. Any order other
// than "asc" sorts newest first.
func SortReports(reports []models.Report, order string) []models.Report {
	out := slices.Clone(reports)

	sort.SliceStable(out, func(i, j int) bool {
		if strings.EqualFold(order, ASC) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// NextStatus advances through the fixed cycle pending, active, resolved,
// wrapping back to pending. A status outside the cycle restarts it at
// pending.
func NextStatus(current models.ReportStatus) models.ReportStatus {
	cycle := statusCycle()
	idx := slices.Index(cycle, current)

	return cycle[(idx+1)%len(cycle)]
}
