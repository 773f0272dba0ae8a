package helpers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/utils"
)

type memoryDraftStore struct {
	values map[string]string
}

func newMemoryDraftStore() *memoryDraftStore {
	return &memoryDraftStore{values: map[string]string{}}
}

func (m *memoryDraftStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", ErrNoDraft
	}

	return v, nil
}

func (m *memoryDraftStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *memoryDraftStore) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func fillValidSubmission(t *testing.T, s *Submission) {
	t.Helper()

	fields := map[string]string{
		"report_type":   models.ReportTypeTrafficking,
		"location":      "Main St",
		"incident_date": "2024-01-01",
		"description":   "Observed repeated hand-offs of small packages for cash.",
	}

	for name, value := range fields {
		if err := s.UpdateField(name, value); err != nil {
			t.Fatalf("Could not set field %q: %v", name, err)
		}
	}
}

func TestNewSubmission(t *testing.T) {
	s := NewSubmission()

	if s.Step != FirstStep {
		t.Errorf("New submission starts at step %d, expected %d", s.Step, FirstStep)
	}

	if !s.Fields.IsAnonymous {
		t.Error("New submission must default to anonymous")
	}

	if s.Touched {
		t.Error("New submission must start untouched")
	}
}

func TestUpdateFieldUnknown(t *testing.T) {
	s := NewSubmission()

	if err := s.UpdateField("favorite_color", "blue"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Unknown field returned %v, expected ErrUnknownField", err)
	}

	if s.Touched {
		t.Error("A rejected field update must not mark the submission as touched")
	}
}

func TestUpdateFieldClearsError(t *testing.T) {
	s := NewSubmission()

	if s.ValidateStep(FirstStep) {
		t.Fatal("An empty first step must not validate")
	}

	if len(s.Errors["report_type"]) < 1 {
		t.Fatal("Expected an error recorded for report_type")
	}

	if err := s.UpdateField("report_type", models.ReportTypeSuspicious); err != nil {
		t.Fatalf("Could not update field: %v", err)
	}

	if len(s.Errors["report_type"]) > 0 {
		t.Error("Updating a field must clear its recorded error")
	}
}

func TestValidateStepOne(t *testing.T) {
	testCases := []struct {
		name         string
		reportType   string
		location     string
		incidentDate string
		valid        bool
		errorField   string
	}{
		{name: "Valid", reportType: models.ReportTypeTrafficking, location: "Main St", incidentDate: "2024-01-01", valid: true},
		{name: "Missing report type", location: "Main St", incidentDate: "2024-01-01", errorField: "report_type"},
		{name: "Unknown report type", reportType: "jaywalking", location: "Main St", incidentDate: "2024-01-01", errorField: "report_type"},
		{name: "Missing location", reportType: models.ReportTypeTrafficking, incidentDate: "2024-01-01", errorField: "location"},
		{name: "Missing date", reportType: models.ReportTypeTrafficking, location: "Main St", errorField: "incident_date"},
		{name: "Malformed date", reportType: models.ReportTypeTrafficking, location: "Main St", incidentDate: "01/02/2024", errorField: "incident_date"},
		{name: "Future date", reportType: models.ReportTypeTrafficking, location: "Main St", incidentDate: "2999-01-01", errorField: "incident_date"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSubmission()
			s.Fields.ReportType = tc.reportType
			s.Fields.Location = tc.location
			s.Fields.IncidentDate = tc.incidentDate

			if got := s.ValidateStep(FirstStep); got != tc.valid {
				t.Errorf("ValidateStep returned %t, expected %t", got, tc.valid)
			}

			if !tc.valid && len(s.Errors[tc.errorField]) < 1 {
				t.Errorf("Expected an error recorded for %q, got %v", tc.errorField, s.Errors)
			}
		})
	}
}

func TestValidateStepTwo(t *testing.T) {
	s := NewSubmission()

	s.Fields.Description = "short"
	if s.ValidateStep(2) {
		t.Error("A five character description must not validate")
	}

	if len(s.Errors["description"]) < 1 {
		t.Error("Expected an error recorded for description")
	}

	s.Fields.Description = "long enough description"
	if !s.ValidateStep(2) {
		t.Errorf("A valid description was rejected: %v", s.Errors)
	}
}

func TestValidateStepThreeOversizedEvidence(t *testing.T) {
	s := NewSubmission()
	s.Evidence = &StagedEvidence{FileName: "clip.mp4", ContentType: "video/mp4", Size: 21 * mibMultiplier}

	if s.ValidateStep(FinalStep) {
		t.Error("Oversized staged evidence must not validate")
	}

	if len(s.Errors["evidence"]) < 1 {
		t.Error("Expected an error recorded for evidence")
	}
}

func TestAdvanceAndRetreat(t *testing.T) {
	s := NewSubmission()

	if s.Advance() {
		t.Error("Advancing an empty first step must fail")
	}

	if s.Step != FirstStep {
		t.Errorf("A failed advance moved the step to %d", s.Step)
	}

	fillValidSubmission(t, s)

	for step := FirstStep; step < FinalStep; step++ {
		if !s.Advance() {
			t.Fatalf("Could not advance from step %d: %v", step, s.Errors)
		}
	}

	if s.Step != FinalStep {
		t.Errorf("Expected to reach step %d, got %d", FinalStep, s.Step)
	}

	// The final step never advances past itself
	if !s.Advance() {
		t.Errorf("Advancing the final step failed: %v", s.Errors)
	}

	if s.Step != FinalStep {
		t.Errorf("Advancing past the final step moved to %d", s.Step)
	}

	s.Retreat()
	if s.Step != FinalStep-1 {
		t.Errorf("Retreat moved to step %d, expected %d", s.Step, FinalStep-1)
	}

	s.Retreat()
	s.Retreat()
	s.Retreat()
	if s.Step != FirstStep {
		t.Errorf("Retreat went below the first step: %d", s.Step)
	}
}

func TestDraftRoundTrip(t *testing.T) {
	store := newMemoryDraftStore()
	ctx := context.Background()

	s := NewSubmission()
	fillValidSubmission(t, s)
	s.Evidence = &StagedEvidence{FileName: "photo.jpg", ContentType: "image/jpeg", Size: 1024, Path: "/nonexistent/photo.jpg"}

	if !s.Advance() || !s.Advance() {
		t.Fatalf("Could not reach the final step: %v", s.Errors)
	}

	if err := SaveSubmission(ctx, store, s); err != nil {
		t.Fatalf("Could not save submission: %v", err)
	}

	restored, err := RestoreDraft(ctx, store, s.ID)
	if err != nil {
		t.Fatalf("Could not restore draft: %v", err)
	}

	if restored.ID != s.ID {
		t.Error("Restoring a draft changed the submission identity")
	}

	if restored.Step != FirstStep {
		t.Errorf("A restored draft must restart at step %d, got %d", FirstStep, restored.Step)
	}

	if restored.Fields.ReportType != models.ReportTypeTrafficking ||
		restored.Fields.Location != "Main St" ||
		restored.Fields.IncidentDate != "2024-01-01" {
		t.Errorf("Restored fields do not match the saved draft: %+v", restored.Fields)
	}

	if restored.Evidence != nil {
		t.Error("Staged evidence must not survive a draft restore")
	}
}

func TestRestoreDraftUntouched(t *testing.T) {
	store := newMemoryDraftStore()
	ctx := context.Background()

	s := NewSubmission()
	if err := SaveSubmission(ctx, store, s); err != nil {
		t.Fatalf("Could not save submission: %v", err)
	}

	if _, err := RestoreDraft(ctx, store, s.ID); !errors.Is(err, ErrNoDraft) {
		t.Errorf("Restoring an untouched session returned %v, expected ErrNoDraft", err)
	}
}

func TestRestoreDraftMissing(t *testing.T) {
	store := newMemoryDraftStore()

	if _, err := RestoreDraft(context.Background(), store, uuid.New()); !errors.Is(err, ErrNoDraft) {
		t.Errorf("Restoring a missing draft returned %v, expected ErrNoDraft", err)
	}
}

func TestFinalizeSubmission(t *testing.T) {
	store := newMemoryDraftStore()
	ctx := context.Background()
	start := time.Now()

	s := NewSubmission()
	fillValidSubmission(t, s)

	if !s.Advance() || !s.Advance() {
		t.Fatalf("Could not reach the final step: %v", s.Errors)
	}

	if err := SaveSubmission(ctx, store, s); err != nil {
		t.Fatalf("Could not save submission: %v", err)
	}

	var created *models.Report
	expectedID := uuid.New()

	id, err := FinalizeSubmission(ctx, store, s,
		func(ev *StagedEvidence) (string, error) {
			t.Error("Upload must not run without staged evidence")
			return "", nil
		},
		func(r *models.Report) (uuid.UUID, error) {
			created = r
			return expectedID, nil
		},
	)
	if err != nil {
		t.Fatalf("Could not finalize submission: %v", err)
	}

	if id != expectedID {
		t.Errorf("Finalize returned id %s, expected %s", id, expectedID)
	}

	if created == nil {
		t.Fatal("The report was never created")
	}

	if created.Status != models.StatusPending {
		t.Errorf("New report has status %q, expected pending", created.Status)
	}

	if created.EvidenceURL != nil {
		t.Errorf("Report without evidence carries URL %q", *created.EvidenceURL)
	}

	if !created.IsAnonymous {
		t.Error("The report must default to anonymous")
	}

	if created.CreatedAt.Before(start) {
		t.Error("The report creation time predates the submission")
	}

	if len(store.values) != 0 {
		t.Error("Finalizing must clear the saved draft")
	}
}

func TestFinalizeSubmissionWithEvidence(t *testing.T) {
	store := newMemoryDraftStore()
	ctx := context.Background()

	s := NewSubmission()
	fillValidSubmission(t, s)

	if !s.Advance() || !s.Advance() {
		t.Fatalf("Could not reach the final step: %v", s.Errors)
	}

	s.Evidence = &StagedEvidence{FileName: "photo.jpg", ContentType: "image/jpeg", Size: 2048, Path: "/nonexistent/photo.jpg"}

	var created *models.Report

	if _, err := FinalizeSubmission(ctx, store, s,
		func(ev *StagedEvidence) (string, error) {
			return "/evidence/123-photo.jpg", nil
		},
		func(r *models.Report) (uuid.UUID, error) {
			created = r
			return uuid.New(), nil
		},
	); err != nil {
		t.Fatalf("Could not finalize submission: %v", err)
	}

	if created.EvidenceURL == nil || *created.EvidenceURL != "/evidence/123-photo.jpg" {
		t.Errorf("Unexpected evidence URL: %v", created.EvidenceURL)
	}
}

func TestFinalizeSubmissionNotFinalStep(t *testing.T) {
	s := NewSubmission()
	fillValidSubmission(t, s)

	if _, err := FinalizeSubmission(context.Background(), newMemoryDraftStore(), s, nil, nil); !errors.Is(err, ErrSubmissionIncomplete) {
		t.Errorf("Finalizing at step %d returned %v, expected ErrSubmissionIncomplete", s.Step, err)
	}
}

func TestFinalizeSubmissionInvalid(t *testing.T) {
	s := NewSubmission()
	fillValidSubmission(t, s)
	s.Step = FinalStep
	s.Fields.Description = "short"

	if _, err := FinalizeSubmission(context.Background(), newMemoryDraftStore(), s, nil, nil); !errors.Is(err, ErrSubmissionInvalid) {
		t.Errorf("Finalizing an invalid submission returned %v, expected ErrSubmissionInvalid", err)
	}

	if len(s.Errors["description"]) < 1 {
		t.Error("Expected the validation error to be recorded")
	}
}

func TestFinalizeSubmissionCreateFails(t *testing.T) {
	store := newMemoryDraftStore()
	ctx := context.Background()

	s := NewSubmission()
	fillValidSubmission(t, s)

	if !s.Advance() || !s.Advance() {
		t.Fatalf("Could not reach the final step: %v", s.Errors)
	}

	if err := SaveSubmission(ctx, store, s); err != nil {
		t.Fatalf("Could not save submission: %v", err)
	}

	if _, err := FinalizeSubmission(ctx, store, s, nil, func(r *models.Report) (uuid.UUID, error) {
		return uuid.Nil, errors.New("connection refused")
	}); err == nil {
		t.Fatal("A failed create must surface an error")
	}

	if s.Step != FinalStep {
		t.Errorf("A failed finalize moved the step to %d", s.Step)
	}

	if len(store.values) != 1 {
		t.Error("A failed finalize must keep the draft for a retry")
	}
}

func TestFinalizeSubmissionRetryKeepsStagedEvidence(t *testing.T) {
	bucketDir := t.TempDir()
	t.Setenv("EVIDENCE_DIR", bucketDir)
	t.Setenv("EVIDENCE_STAGING_DIR", t.TempDir())

	store := newMemoryDraftStore()
	ctx := context.Background()

	s := NewSubmission()
	fillValidSubmission(t, s)

	if !s.Advance() || !s.Advance() {
		t.Fatalf("Could not reach the final step: %v", s.Errors)
	}

	staged := filepath.Join(utils.EvidenceStagingDir(), s.ID.String()+".jpg")
	if err := os.WriteFile(staged, []byte("jpeg bytes"), 0o640); err != nil {
		t.Fatalf("Could not write staged file: %v", err)
	}

	s.Evidence = &StagedEvidence{FileName: "photo.jpg", ContentType: "image/jpeg", Size: 10, Path: staged}

	if err := SaveSubmission(ctx, store, s); err != nil {
		t.Fatalf("Could not save submission: %v", err)
	}

	if _, err := FinalizeSubmission(ctx, store, s, UploadEvidence, func(r *models.Report) (uuid.UUID, error) {
		return uuid.Nil, errors.New("connection refused")
	}); err == nil {
		t.Fatal("A failed create must surface an error")
	}

	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("The staged file must survive a failed create: %v", err)
	}

	if entries, err := os.ReadDir(bucketDir); err != nil || len(entries) != 0 {
		t.Errorf("A failed create must not leave objects in the bucket, found %d", len(entries))
	}

	var created *models.Report

	if _, err := FinalizeSubmission(ctx, store, s, UploadEvidence, func(r *models.Report) (uuid.UUID, error) {
		created = r
		return uuid.New(), nil
	}); err != nil {
		t.Fatalf("The retry must succeed: %v", err)
	}

	if created == nil || created.EvidenceURL == nil {
		t.Fatal("The retried report must carry the evidence URL")
	}

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("A successful submit must clean up the staged file")
	}

	if entries, err := os.ReadDir(bucketDir); err != nil || len(entries) != 1 {
		t.Errorf("Expected exactly one object in the bucket, found %d", len(entries))
	}
}
