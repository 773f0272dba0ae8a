package helpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safestreets/tipline/models"
)

func testReport(reportType string, status models.ReportStatus, createdAt time.Time) models.Report {
	return models.Report{
		ID:           uuid.New(),
		ReportType:   reportType,
		Description:  "Observed a suspicious exchange near the corner store.",
		Location:     "5th Ave and Pine St",
		IncidentDate: createdAt,
		Status:       status,
		CreatedAt:    createdAt,
	}
}

func TestCountByStatus(t *testing.T) {
	now := time.Now()

	reports := []models.Report{
		testReport(models.ReportTypeTrafficking, models.StatusPending, now),
		testReport(models.ReportTypePossession, models.StatusActive, now),
		testReport(models.ReportTypeSuspicious, models.StatusResolved, now),
		testReport(models.ReportTypeSuspicious, "processing", now),
		testReport(models.ReportTypeDistribution, "solved", now),
		testReport(models.ReportTypeTrafficking, "garbage", now),
	}

	counts := CountByStatus(reports)

	total := 0
	for _, n := range counts {
		total += n
	}

	if total != len(reports) {
		t.Errorf("Counted %d reports, expected %d", total, len(reports))
	}

	if counts[models.StatusPending] != 2 {
		t.Errorf("Pending count is %d, expected 2", counts[models.StatusPending])
	}

	if counts[models.StatusActive] != 2 {
		t.Errorf("Active count is %d, expected 2", counts[models.StatusActive])
	}

	if counts[models.StatusResolved] != 2 {
		t.Errorf("Resolved count is %d, expected 2", counts[models.StatusResolved])
	}
}

func TestCountByStatusEmpty(t *testing.T) {
	counts := CountByStatus(nil)

	if len(counts) != 3 {
		t.Errorf("Expected all three statuses to be present, got %d keys", len(counts))
	}

	for status, n := range counts {
		if n != 0 {
			t.Errorf("Status %q has count %d on an empty list", status, n)
		}
	}
}

func TestCountByType(t *testing.T) {
	now := time.Now()

	reports := []models.Report{
		testReport(models.ReportTypeTrafficking, models.StatusPending, now),
		testReport("Drug Trafficking", models.StatusActive, now),
		testReport(models.ReportTypePossession, models.StatusPending, now),
	}

	counts := CountByType(reports)

	if counts[models.ReportTypeTrafficking] != 2 {
		t.Errorf("Trafficking count is %d, expected 2 after case folding", counts[models.ReportTypeTrafficking])
	}

	if counts[models.ReportTypePossession] != 1 {
		t.Errorf("Possession count is %d, expected 1", counts[models.ReportTypePossession])
	}
}

func TestBucketByTimeDaily(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	rangeStart := now.AddDate(0, 0, -7)

	reports := []models.Report{
		testReport(models.ReportTypeTrafficking, models.StatusPending, now.AddDate(0, 0, -1)),
		testReport(models.ReportTypePossession, models.StatusActive, now.AddDate(0, 0, -1)),
		testReport(models.ReportTypeSuspicious, models.StatusPending, now.AddDate(0, 0, -3)),
		// Outside the range, must be skipped
		testReport(models.ReportTypeSuspicious, models.StatusPending, now.AddDate(0, 0, -30)),
		// No usable creation time, must be skipped
		testReport(models.ReportTypeSuspicious, models.StatusPending, time.Time{}),
	}

	buckets := BucketByTime(reports, rangeStart, now)

	if len(buckets) != 2 {
		t.Fatalf("Got %d buckets, expected 2", len(buckets))
	}

	if buckets[0].Period != "2026-08-17" || buckets[1].Period != "2026-08-19" {
		t.Errorf("Buckets are not in ascending order: %q, %q", buckets[0].Period, buckets[1].Period)
	}

	if buckets[1].Counts[models.StatusPending] != 1 || buckets[1].Counts[models.StatusActive] != 1 {
		t.Errorf("Unexpected counts in bucket %q: %v", buckets[1].Period, buckets[1].Counts)
	}
}

func TestBucketByTimeMonthly(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	rangeStart := now.AddDate(-1, 0, 0)

	reports := []models.Report{
		testReport(models.ReportTypeTrafficking, models.StatusPending, now.AddDate(0, -2, 0)),
		testReport(models.ReportTypePossession, models.StatusActive, now.AddDate(0, -2, -3)),
		testReport(models.ReportTypeSuspicious, models.StatusResolved, now.AddDate(0, 0, -1)),
	}

	buckets := BucketByTime(reports, rangeStart, now)

	if len(buckets) != 2 {
		t.Fatalf("Got %d buckets, expected 2 month buckets", len(buckets))
	}

	if buckets[0].Period != "2026-06" || buckets[1].Period != "2026-08" {
		t.Errorf("Unexpected month buckets: %q, %q", buckets[0].Period, buckets[1].Period)
	}

	if buckets[0].Counts[models.StatusPending]+buckets[0].Counts[models.StatusActive] != 2 {
		t.Errorf("Unexpected counts in bucket %q: %v", buckets[0].Period, buckets[0].Counts)
	}
}

func TestBucketByTimeSingleBucketPerReport(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	reports := []models.Report{
		testReport(models.ReportTypeTrafficking, models.StatusPending, now.AddDate(0, 0, -2)),
	}

	buckets := BucketByTime(reports, now.AddDate(0, 0, -7), now)

	total := 0
	for _, b := range buckets {
		for _, n := range b.Counts {
			total += n
		}
	}

	if total != 1 {
		t.Errorf("A single report landed in %d bucket slots, expected exactly 1", total)
	}
}

func TestFilterReports(t *testing.T) {
	now := time.Now()

	target := testReport(models.ReportTypeTrafficking, models.StatusPending, now)
	target.Description = "Packages exchanged for cash behind the bakery."
	target.Location = "Baker Street"

	other := testReport(models.ReportTypePossession, models.StatusActive, now)
	other.Description = "Syringes near the playground."
	other.Location = "Riverside Park"

	reports := []models.Report{target, other}

	testCases := []struct {
		name     string
		filter   ReportFilter
		expected int
	}{
		{name: "No filters", filter: ReportFilter{}, expected: 2},
		{name: "All sentinel", filter: ReportFilter{Status: "all", Type: "all"}, expected: 2},
		{name: "Search description", filter: ReportFilter{Search: "BAKERY"}, expected: 1},
		{name: "Search location", filter: ReportFilter{Search: "riverside"}, expected: 1},
		{name: "Search id", filter: ReportFilter{Search: target.ID.String()}, expected: 1},
		{name: "Status match", filter: ReportFilter{Status: "active"}, expected: 1},
		{name: "Legacy status alias", filter: ReportFilter{Status: "processing"}, expected: 1},
		{name: "Type match", filter: ReportFilter{Type: models.ReportTypeTrafficking}, expected: 1},
		{name: "Combined, no result", filter: ReportFilter{Search: "bakery", Status: "active"}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterReports(reports, tc.filter)

			if len(got) != tc.expected {
				t.Errorf("Got %d reports, expected %d", len(got), tc.expected)
			}
		})
	}
}

func TestFilterReportsIdempotent(t *testing.T) {
	now := time.Now()
	reports := []models.Report{
		testReport(models.ReportTypeTrafficking, models.StatusPending, now),
		testReport(models.ReportTypePossession, models.StatusActive, now),
	}

	filter := ReportFilter{Status: "pending"}

	once := FilterReports(reports, filter)
	twice := FilterReports(once, filter)

	if len(once) != len(twice) {
		t.Errorf("Filtering twice changed the result: %d then %d", len(once), len(twice))
	}

	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Errorf("Report %d changed identity after refiltering", i)
		}
	}
}

func TestSortReports(t *testing.T) {
	now := time.Now()

	oldest := testReport(models.ReportTypeTrafficking, models.StatusPending, now.AddDate(0, 0, -3))
	middle := testReport(models.ReportTypePossession, models.StatusActive, now.AddDate(0, 0, -1))
	newest := testReport(models.ReportTypeSuspicious, models.StatusResolved, now)

	reports := []models.Report{middle, newest, oldest}

	asc := SortReports(reports, "asc")
	if asc[0].ID != oldest.ID || asc[2].ID != newest.ID {
		t.Error("Ascending sort did not order oldest first")
	}

	desc := SortReports(reports, "desc")
	if desc[0].ID != newest.ID || desc[2].ID != oldest.ID {
		t.Error("Descending sort did not order newest first")
	}

	// The input order must stay untouched
	if reports[0].ID != middle.ID {
		t.Error("Sorting modified the input slice")
	}
}

func TestNextStatus(t *testing.T) {
	testCases := []struct {
		current  models.ReportStatus
		expected models.ReportStatus
	}{
		{current: models.StatusPending, expected: models.StatusActive},
		{current: models.StatusActive, expected: models.StatusResolved},
		{current: models.StatusResolved, expected: models.StatusPending},
		{current: "garbage", expected: models.StatusPending},
	}

	for _, tc := range testCases {
		if got := NextStatus(tc.current); got != tc.expected {
			t.Errorf("NextStatus(%q) is %q, expected %q", tc.current, got, tc.expected)
		}
	}
}
