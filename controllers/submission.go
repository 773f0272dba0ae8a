package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/helpers"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/tasks"
	"github.com/safestreets/tipline/utils"
)

type submissionStartInput struct {
	DraftID string `json:"draft_id,omitempty"`
}

// trustedOrigin matches the request host against the configured application
// domain at the apex level, so the intake cannot be driven from an embedding
// third-party site. Local and unconfigured deployments pass.
func trustedOrigin(c *fiber.Ctx) bool {
	domain := os.Getenv("APP_DOMAIN")

	if c.IsFromLocal() || len(domain) < 1 {
		return true
	}

	apex, err := utils.GetApexDomain(domain)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not get the application apex domain: %v", err))
		return false
	}

	host, err := utils.GetApexDomain(c.Hostname())
	if err != nil {
		slog.Error(fmt.Sprintf("Could not get the request apex domain: %v", err))
		return false
	}

	return strings.EqualFold(apex, host)
}

// submissionFromParams resolves the session addressed by the :id parameter.
// A nil result means the error response has already been written and the
// handler must bail out.
func submissionFromParams(c *fiber.Ctx) *helpers.Submission {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil || !utils.IsValidUuid(id) {
		_ = c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"The submission ID is invalid."}})
		return nil
	}

	s, err := helpers.LoadSubmission(context.Background(), helpers.Drafts(), id)
	if err != nil {
		if !errors.Is(err, helpers.ErrNoDraft) {
			slog.Error(fmt.Sprintf("Could not load submission '%s': %v", id, err))
		}

		_ = c.Status(fiber.StatusNotFound).JSON(&fiber.Map{"error": []string{"The submission does not exist or has expired."}})
		return nil
	}

	return s
}

type stagedEvidenceView struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// submissionView is the client-facing shape of a session. The staging
// location of an uploaded file stays server-side.
type submissionView struct {
	ID       uuid.UUID                `json:"id"`
	Step     int                      `json:"step"`
	Fields   helpers.SubmissionFields `json:"fields"`
	Errors   map[string][]string      `json:"errors"`
	Evidence *stagedEvidenceView      `json:"evidence"`
}

func toSubmissionView(s *helpers.Submission) submissionView {
	view := submissionView{
		ID:     s.ID,
		Step:   s.Step,
		Fields: s.Fields,
		Errors: s.Errors,
	}

	if s.Evidence != nil {
		view.Evidence = &stagedEvidenceView{
			FileName:    s.Evidence.FileName,
			ContentType: s.Evidence.ContentType,
			Size:        s.Evidence.Size,
		}
	}

	return view
}

func saveAndRespond(c *fiber.Ctx, s *helpers.Submission) error {
	if err := helpers.SaveSubmission(context.Background(), helpers.Drafts(), s); err != nil {
		slog.Error(fmt.Sprintf("Could not save submission '%s': %v", s.ID, err))
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not save the submission."}})
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": toSubmissionView(s)})
}

// PostSubmission opens a new intake session. When the request names a
// previous draft and that draft is still stored, its field values are carried
// over and the flow restarts at the first step.
func PostSubmission(c *fiber.Ctx) error {
	if !trustedOrigin(c) {
		return c.Status(fiber.StatusForbidden).JSON(&fiber.Map{"error": []string{"You do not have permission to access this resource."}})
	}

	input := &submissionStartInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			slog.Error(fmt.Sprintf("Error parsing input data: %v", err))
			return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Invalid submission data."}})
		}
	}

	var s *helpers.Submission
	restored := false

	if draftID, err := uuid.Parse(input.DraftID); err == nil {
		s, err = helpers.RestoreDraft(context.Background(), helpers.Drafts(), draftID)
		if err != nil && !errors.Is(err, helpers.ErrNoDraft) {
			slog.Error(fmt.Sprintf("Could not restore draft '%s': %v", draftID, err))
		}

		restored = s != nil
	}

	if s == nil {
		s = helpers.NewSubmission()
	}

	if err := helpers.SaveSubmission(context.Background(), helpers.Drafts(), s); err != nil {
		slog.Error(fmt.Sprintf("Could not save submission '%s': %v", s.ID, err))
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not start the submission."}})
	}

	return c.Status(fiber.StatusCreated).JSON(&fiber.Map{"data": toSubmissionView(s), "restored": restored})
}

func GetSubmission(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": toSubmissionView(s)})
}

// PatchSubmissionFields applies partial field updates and autosaves the
// draft. Unknown field names are rejected without touching the session.
func PatchSubmissionFields(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	input := map[string]interface{}{}
	if err := c.BodyParser(&input); err != nil {
		slog.Error(fmt.Sprintf("Error parsing input data: %v", err))
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Invalid submission data."}})
	}

	errs := fiber.Map{}

	for name, raw := range input {
		if err := s.UpdateField(name, fieldValue(raw)); err != nil {
			errs = utils.AddError(errs, name, err.Error())
		}
	}

	if len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(&fiber.Map{"error": errs})
	}

	return saveAndRespond(c, s)
}

func fieldValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// PostSubmissionAdvance moves the flow to the next step when the current one
// validates. On failure the per-field errors are returned and persisted so a
// restored session shows them again.
func PostSubmissionAdvance(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	advanced := s.Advance()

	if err := helpers.SaveSubmission(context.Background(), helpers.Drafts(), s); err != nil {
		slog.Error(fmt.Sprintf("Could not save submission '%s': %v", s.ID, err))
	}

	if !advanced {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(&fiber.Map{"error": s.Errors, "data": toSubmissionView(s)})
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{"data": toSubmissionView(s)})
}

func PostSubmissionRetreat(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	s.Retreat()

	return saveAndRespond(c, s)
}

// PutSubmissionEvidence stages the uploaded file for the session. A second
// upload replaces the previously staged file.
func PutSubmissionEvidence(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	fh, err := c.FormFile("evidence")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"No evidence file was provided."}})
	}

	if err := helpers.CheckEvidenceHeader(fh); err != nil {
		status := fiber.StatusBadRequest

		if fh.Size > helpers.MaxEvidenceSize {
			status = fiber.StatusRequestEntityTooLarge
		}

		return c.Status(status).JSON(&fiber.Map{"error": []string{err.Error()}})
	}

	if s.Evidence != nil {
		helpers.DiscardEvidence(s.Evidence)
		s.Evidence = nil
	}

	ev, err := helpers.StageEvidence(s.ID, fh)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not stage evidence for submission '%s': %v", s.ID, err))
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not store the evidence file."}})
	}

	s.Evidence = ev
	s.Touched = true
	delete(s.Errors, "evidence")

	return saveAndRespond(c, s)
}

func DeleteSubmissionEvidence(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	helpers.DiscardEvidence(s.Evidence)
	s.Evidence = nil
	delete(s.Errors, "evidence")

	return saveAndRespond(c, s)
}

// PostSubmissionFinalize validates the whole form and files the report. A
// short-lived lock makes duplicate submits of the same session idempotent
// while the first one is in flight.
func PostSubmissionFinalize(c *fiber.Ctx) error {
	if !trustedOrigin(c) {
		return c.Status(fiber.StatusForbidden).JSON(&fiber.Map{"error": []string{"You do not have permission to access this resource."}})
	}

	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	lockKey := fmt.Sprintf("submitting:%s", s.ID)

	if err := app.Cache().Do(
		context.Background(),
		app.Cache().B().Set().Key(lockKey).Value("1").Nx().Ex(utils.SubmissionLockExpiration()).Build(),
	).Error(); err != nil {
		if errors.Is(err, rueidis.Nil) {
			return c.Status(fiber.StatusConflict).JSON(&fiber.Map{"error": []string{"This submission is already being processed."}})
		}

		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Could not acquire submission lock '%s': %v", lockKey, err))
	}

	defer func() {
		if err := app.Cache().Do(context.Background(), app.Cache().B().Del().Key(lockKey).Build()).Error(); err != nil {
			slog.Warn(fmt.Sprintf("Could not release submission lock '%s': %v", lockKey, err))
		}
	}()

	reportID, err := helpers.FinalizeSubmission(
		context.Background(),
		helpers.Drafts(),
		s,
		helpers.UploadEvidence,
		func(r *models.Report) (uuid.UUID, error) {
			return helpers.CreateReport(app.DB(), r)
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, helpers.ErrSubmissionIncomplete):
			return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{err.Error()}})
		case errors.Is(err, helpers.ErrSubmissionInvalid):
			if serr := helpers.SaveSubmission(context.Background(), helpers.Drafts(), s); serr != nil {
				slog.Error(fmt.Sprintf("Could not save submission '%s': %v", s.ID, serr))
			}

			return c.Status(fiber.StatusUnprocessableEntity).JSON(&fiber.Map{"error": s.Errors, "data": toSubmissionView(s)})
		default:
			sentry.CaptureException(err)
			slog.Error(fmt.Sprintf("Could not finalize submission '%s': %v", s.ID, err))

			return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not submit the report."}})
		}
	}

	invalidateStatsCache()
	notifyNewReport(reportID)

	return c.Status(fiber.StatusCreated).JSON(&fiber.Map{"data": fiber.Map{"report_id": reportID}})
}

func DeleteSubmission(c *fiber.Ctx) error {
	s := submissionFromParams(c)
	if s == nil {
		return nil
	}

	if err := helpers.ClearDraft(context.Background(), helpers.Drafts(), s); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{"error": []string{"Could not discard the submission."}})
	}

	return c.Status(fiber.StatusNoContent).JSON(&fiber.Map{})
}

func notifyNewReport(reportID uuid.UUID) {
	report, err := helpers.GetReport(app.DB(), reportID)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not load report '%s' for notification: %v", reportID, err))
		return
	}

	now := time.Now().In(utils.DefaultLocation())

	if err := tasks.NewEmail(
		helpers.EmailOpts{
			Subject:      "New incident report received",
			TemplateName: "report_received",
			IsInternal:   true,
			ToList:       helpers.GetStaffEmails(),
		},
		map[string]interface{}{
			"ReportID":       report.ID.String(),
			"ReportType":     report.ReportType,
			"Location":       report.Location,
			"IncidentDate":   report.IncidentDate.Format(time.DateOnly),
			"ReportDateTime": now.Format("2006-01-02 15:04:05 -07:00"),
		},
	); err != nil {
		sentry.CaptureException(err)
		slog.Error(fmt.Sprintf("Error sending email: %v", err))
	}
}
