package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/utils"
)

const (
	FirstStep int = 1
	FinalStep int = 3

	minDescriptionLength int = 10
)

var (
	ErrSubmissionInvalid    = errors.New("The submission has validation errors.")
	ErrSubmissionIncomplete = errors.New("The submission has not reached the final step.")
	ErrUnknownField         = errors.New("Unknown submission field.")
)

type SubmissionFields struct {
	ReportType         string `json:"report_type"`
	Description        string `json:"description"`
	Location           string `json:"location"`
	IncidentDate       string `json:"incident_date"`
	SuspectDescription string `json:"suspect_description"`
	AdditionalDetails  string `json:"additional_details"`
	IsAnonymous        bool   `json:"is_anonymous"`
}

// Submission drives the sequential three step intake flow. The struct is
// serialized as-is into the draft store between requests; the staged
// evidence binary itself stays on disk and is referenced by path only.
type Submission struct {
	ID       uuid.UUID           `json:"id"`
	Step     int                 `json:"step"`
	Fields   SubmissionFields    `json:"fields"`
	Errors   map[string][]string `json:"errors"`
	Evidence *StagedEvidence     `json:"evidence"`
	Touched  bool                `json:"touched"`
}

// Collaborators of FinalizeSubmission. The controller wires the evidence
// store and the report repository in; tests substitute stand-ins.
type (
	EvidenceUploader func(ev *StagedEvidence) (string, error)
	ReportCreator    func(r *models.Report) (uuid.UUID, error)
)

func NewSubmission() *Submission {
	return &Submission{
		ID:     uuid.New(),
		Step:   FirstStep,
		Fields: SubmissionFields{IsAnonymous: true},
		Errors: map[string][]string{},
	}
}

func (s *Submission) addError(field, msg string) {
	if s.Errors == nil {
		s.Errors = map[string][]string{}
	}

	s.Errors[field] = append(s.Errors[field], msg)
}

// UpdateField sets a single field, clears any stale error recorded for it
// and marks the form as touched so drafts start persisting.
func (s *Submission) UpdateField(name, value string) error {
	switch name {
	case "report_type":
		s.Fields.ReportType = strings.ToLower(strings.TrimSpace(value))
	case "description":
		s.Fields.Description = value
	case "location":
		s.Fields.Location = strings.TrimSpace(value)
	case "incident_date":
		s.Fields.IncidentDate = strings.TrimSpace(value)
	case "suspect_description":
		s.Fields.SuspectDescription = value
	case "additional_details":
		s.Fields.AdditionalDetails = value
	case "is_anonymous":
		anonymous, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("Invalid value for the anonymous flag: %w", err)
		}

		s.Fields.IsAnonymous = anonymous
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	delete(s.Errors, name)
	s.Touched = true

	return nil
}

func stepFields(step int) []string {
	switch step {
	case FirstStep:
		return []string{"report_type", "location", "incident_date"}
	case 2:
		return []string{"description"}
	case FinalStep:
		return []string{"evidence"}
	default:
		return nil
	}
}

// ValidateStep applies the step's required-field and length rules,
// recording messages into the error map keyed by field name.
func (s *Submission) ValidateStep(step int) bool {
	for _, f := range stepFields(step) {
		delete(s.Errors, f)
	}

	switch step {
	case FirstStep:
		if len(s.Fields.ReportType) < 1 {
			s.addError("report_type", "Select a report type.")
		} else if !models.IsValidReportType(s.Fields.ReportType) {
			s.addError("report_type", "The selected report type is not valid.")
		}

		if len(strings.TrimSpace(s.Fields.Location)) < 1 {
			s.addError("location", "Enter the location of the incident.")
		}

		if len(s.Fields.IncidentDate) < 1 {
			s.addError("incident_date", "Enter the date of the incident.")
		} else if date, err := time.ParseInLocation(time.DateOnly, s.Fields.IncidentDate, utils.DefaultLocation()); err != nil {
			s.addError("incident_date", "The incident date is not a valid date.")
		} else if date.After(time.Now().In(utils.DefaultLocation())) {
			s.addError("incident_date", "The incident date cannot be in the future.")
		}
	case 2:
		if len(strings.TrimSpace(s.Fields.Description)) < minDescriptionLength {
			s.addError("description", fmt.Sprintf("Describe what you witnessed with at least %d characters.", minDescriptionLength))
		}
	case FinalStep:
		if s.Evidence != nil && s.Evidence.Size > MaxEvidenceSize {
			s.addError("evidence", "The evidence file exceeds the size limit.")
		}
	}

	for _, f := range stepFields(step) {
		if len(s.Errors[f]) > 0 {
			return false
		}
	}

	return true
}

func (s *Submission) ValidateAll() bool {
	valid := true

	for step := FirstStep; step <= FinalStep; step++ {
		if !s.ValidateStep(step) {
			valid = false
		}
	}

	return valid
}

// Advance moves to the next step only when the current one validates;
// otherwise the step is unchanged and the error map carries the reasons.
func (s *Submission) Advance() bool {
	if !s.ValidateStep(s.Step) {
		return false
	}

	if s.Step < FinalStep {
		s.Step++
	}

	return true
}

// Retreat never validates: going back to fix earlier answers is always
// allowed.
func (s *Submission) Retreat() {
	if s.Step > FirstStep {
		s.Step--
	}
}

func (s *Submission) buildReport() *models.Report {
	incidentDate, err := time.ParseInLocation(time.DateOnly, s.Fields.IncidentDate, utils.DefaultLocation())
	if err != nil {
		// ValidateAll has already vouched for the date format.
		incidentDate = time.Now().In(utils.DefaultLocation())
	}

	return &models.Report{
		ReportType:         s.Fields.ReportType,
		Description:        strings.TrimSpace(s.Fields.Description),
		Location:           s.Fields.Location,
		IncidentDate:       incidentDate,
		SuspectDescription: utils.ToStringPtr(s.Fields.SuspectDescription),
		AdditionalDetails:  utils.ToStringPtr(s.Fields.AdditionalDetails),
		IsAnonymous:        s.Fields.IsAnonymous,
		Status:             models.StatusPending,
		CreatedAt:          time.Now().In(utils.DefaultLocation()),
	}
}

// FinalizeSubmission turns a completed submission into a persisted report:
// staged evidence is uploaded first, then the record is created. Any failure
// leaves the submission state untouched so the citizen can retry; success
// clears the draft and the staged file. The new report id is returned to the
// caller explicitly.
func FinalizeSubmission(ctx context.Context, store DraftStore, s *Submission, upload EvidenceUploader, create ReportCreator) (uuid.UUID, error) {
	if s.Step != FinalStep {
		return uuid.Nil, ErrSubmissionIncomplete
	}

	if !s.ValidateAll() {
		return uuid.Nil, ErrSubmissionInvalid
	}

	report := s.buildReport()

	if s.Evidence != nil {
		url, err := upload(s.Evidence)
		if err != nil {
			return uuid.Nil, fmt.Errorf("Could not upload evidence: %w", err)
		}

		report.EvidenceURL = &url
	}

	id, err := create(report)
	if err != nil {
		// Undo the upload so a retry does not leave a second copy behind.
		// The staged file is kept for that retry.
		if report.EvidenceURL != nil {
			RemoveEvidenceObject(*report.EvidenceURL)
		}

		return uuid.Nil, fmt.Errorf("Could not create report: %w", err)
	}

	if err := ClearDraft(ctx, store, s); err != nil {
		// The report exists; a stale draft is only a cosmetic leftover.
		slog.Warn(fmt.Sprintf("Could not clear draft after submission: %v", err))
	}

	return id, nil
}
