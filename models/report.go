package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusActive   ReportStatus = "active"
	StatusResolved ReportStatus = "resolved"
)

const (
	ReportTypeTrafficking   string = "drug trafficking"
	ReportTypePossession    string = "illegal possession"
	ReportTypeSuspicious    string = "suspicious activity"
	ReportTypeManufacturing string = "drug manufacturing"
	ReportTypeDistribution  string = "distribution"
)

type Report struct {
	ID                 uuid.UUID      `gorm:"primaryKey;type:uuid;not null;unique;default:gen_random_uuid()" json:"id"`
	ReportType         string         `gorm:"size:100;not null" json:"report_type"`
	Description        string         `gorm:"type:text;not null" json:"description"`
	Location           string         `gorm:"type:text;not null" json:"location"`
	IncidentDate       time.Time      `gorm:"type:date;not null" json:"incident_date"`
	SuspectDescription *string        `gorm:"type:text" json:"suspect_description"`
	AdditionalDetails  *string        `gorm:"type:text" json:"additional_details"`
	EvidenceURL        *string        `gorm:"type:text" json:"evidence_url"`
	IsAnonymous        bool           `gorm:"not null;default:true" json:"is_anonymous"`
	Status             ReportStatus   `gorm:"size:100;not null;default:'pending'" json:"status"`
	StatusDescription  *string        `gorm:"size:255" json:"status_description"`
	CreatedAt          time.Time      `gorm:"not null;default:clock_timestamp()" json:"timestamp"`
	UpdatedAt          time.Time      `gorm:"not null;default:clock_timestamp()" json:"-"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (r Report) GetID() uuid.UUID {
	return r.ID
}

func (r Report) GetCreatedAt() time.Time {
	return r.CreatedAt
}

func ReportTypes() []string {
	return []string{
		ReportTypeTrafficking,
		ReportTypePossession,
		ReportTypeSuspicious,
		ReportTypeManufacturing,
		ReportTypeDistribution,
	}
}

func IsValidReportType(t string) bool {
	return slices.Contains(ReportTypes(), strings.ToLower(strings.TrimSpace(t)))
}

// NormalizeStatus maps the status vocabulary found in older records
// ("processing", "solved", capitalized admin labels) onto the three
// canonical lifecycle states. Unknown or empty values fall back to pending.
func NormalizeStatus(s string) ReportStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StatusActive), "processing", "investigating":
		return StatusActive
	case string(StatusResolved), "solved", "complete":
		return StatusResolved
	default:
		return StatusPending
	}
}
