package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/getsentry/sentry-go"
)

const (
	minDraftExpiration     int64 = 1
	defaultDraftExpiration int64 = 168
	maxDraftExpiration     int64 = 720
	minSubmitLockDuration  int64 = 10
	defaultSubmitLock      int64 = 60
	maxSubmitLockDuration  int64 = 300
)

func IsDebug() bool {
	isDebug, err := strconv.ParseBool(os.Getenv("APP_DEBUG"))
	if err != nil {
		isDebug = false
	}

	return isDebug
}

func SupportEmail() string {
	e := os.Getenv("SUPPORT_EMAIL")

	if len(e) < 1 {
		slog.Error("Support email is empty.")
		return ""
	}

	if !IsValidEmail(e) {
		slog.Error("Support email is invalid.")
		return ""
	}

	return e
}

func InternalStaffEmail() string {
	e := os.Getenv("INTERNAL_STAFF_EMAIL")

	if len(e) < 1 {
		slog.Error("Internal staff email is empty.")
		return ""
	}

	if !IsValidEmail(e) {
		slog.Error("Internal staff email is invalid.")
		return ""
	}

	return e
}

func EmailLang() string {
	l := os.Getenv("EMAIL_LANG")

	if len(l) < 1 {
		slog.Warn("Empty email language. Falling back to 'en'.")
		l = "en"
	}

	return l
}

func DefaultTimeZone() string {
	tz := os.Getenv("TZ")
	if len(tz) < 1 {
		tz = "UTC"
	}

	return tz
}

func DefaultLocation() *time.Location {
	tz := DefaultTimeZone()

	loc, err := time.LoadLocation(tz)
	if err != nil {
		sentry.CaptureException(err)
		return time.Now().Location()
	}

	return loc
}

// DraftExpiration is how long an unsubmitted draft survives in the store,
// in hours.
func DraftExpiration() time.Duration {
	exp, err := strconv.ParseInt(os.Getenv("DRAFT_EXPIRATION"), 10, 64)
	if err != nil {
		exp = defaultDraftExpiration
	}

	if exp < minDraftExpiration {
		exp = minDraftExpiration
	}

	if exp > maxDraftExpiration {
		exp = maxDraftExpiration
	}

	return time.Duration(exp) * time.Hour
}

// SubmissionLockExpiration bounds the in-flight guard held while a finalize
// is uploading evidence and creating the record, in seconds.
func SubmissionLockExpiration() time.Duration {
	exp, err := strconv.ParseInt(os.Getenv("SUBMISSION_LOCK_EXPIRATION"), 10, 64)
	if err != nil {
		exp = defaultSubmitLock
	}

	if exp < minSubmitLockDuration {
		exp = minSubmitLockDuration
	}

	if exp > maxSubmitLockDuration {
		exp = maxSubmitLockDuration
	}

	return time.Duration(exp) * time.Second
}

func EvidenceDir() string {
	d := os.Getenv("EVIDENCE_DIR")
	if len(d) < 1 {
		d = filepath.Join("storage", "evidence")
	}

	return filepath.Clean(d)
}

func EvidenceStagingDir() string {
	d := os.Getenv("EVIDENCE_STAGING_DIR")
	if len(d) < 1 {
		d = filepath.Join("storage", "staging")
	}

	return filepath.Clean(d)
}

func AdminAPIKey() string {
	k := os.Getenv("ADMIN_API_KEY")

	if len(k) < 32 && !IsDebug() {
		slog.Error("The admin API key is missing or too short.")
		return ""
	}

	return k
}

// LockResolvedStatus controls whether resolved reports are terminal or keep
// cycling back to pending, matching the historical admin panel behavior.
func LockResolvedStatus() bool {
	lock, err := strconv.ParseBool(os.Getenv("STATUS_CYCLE_LOCK_RESOLVED"))
	if err != nil {
		lock = false
	}

	return lock
}
