package helpers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safestreets/tipline/utils"
)

const (
	mibMultiplier   int64 = 1024 * 1024
	MaxEvidenceSize int64 = 20 * mibMultiplier
)

var (
	evidenceMimeTypes = []string{"image/*", "video/*"}
	fileNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// StagedEvidence references a file held in the staging area while its
// submission is still in progress. Only the promoted copy in the bucket
// directory ever gets a public URL.
type StagedEvidence struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
}

// CheckEvidenceHeader rejects oversized or non-media files before any byte
// is written.
func CheckEvidenceHeader(fh *multipart.FileHeader) error {
	if fh.Size > MaxEvidenceSize {
		return fmt.Errorf("The evidence file exceeds the %d MiB limit.", MaxEvidenceSize/mibMultiplier)
	}

	if !utils.HasValidMimeType(fh, evidenceMimeTypes) {
		return errors.New("Only image and video evidence is accepted.")
	}

	return nil
}

// StageEvidence stores the uploaded file in the staging area keyed by the
// submission session, replacing any previously staged file.
func StageEvidence(sessionID uuid.UUID, fh *multipart.FileHeader) (*StagedEvidence, error) {
	if err := CheckEvidenceHeader(fh); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("Could not read the uploaded file: %w", err)
	}
	defer src.Close()

	path := filepath.Join(utils.EvidenceStagingDir(), sessionID.String()+filepath.Ext(fh.Filename))

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("Could not stage the uploaded file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("Could not write the uploaded file: %w", err)
	}

	return &StagedEvidence{
		FileName:    filepath.Base(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Path:        path,
	}, nil
}

// DiscardEvidence deletes a staged file. Removal is best-effort: a missing
// file is not an error.
func DiscardEvidence(ev *StagedEvidence) {
	if ev == nil {
		return
	}

	if err := os.Remove(ev.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn(fmt.Sprintf("Could not remove staged evidence '%s': %v", ev.Path, err))
	}
}

// UniqueEvidenceName builds a collision-resistant object name from the
// original file name: a millisecond time prefix plus the sanitized base name.
func UniqueEvidenceName(original string) string {
	base := fileNameSanitizer.ReplaceAllString(filepath.Base(original), "-")

	if len(strings.Trim(base, "-.")) < 1 {
		base = "evidence"
	}

	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base)
}

// UploadEvidence copies a staged file into the evidence bucket and returns
// its public retrieval URL. The staging copy is left in place so a failed
// submission can retry; the caller discards it once the report is stored.
// Overwriting an existing object is forbidden; on a name collision one retry
// with a random suffix is attempted.
func UploadEvidence(ev *StagedEvidence) (string, error) {
	name := UniqueEvidenceName(ev.FileName)

	dst, err := os.OpenFile(filepath.Join(utils.EvidenceDir(), name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if os.IsExist(err) {
		suffix, rerr := utils.RandomString(6)
		if rerr != nil {
			return "", fmt.Errorf("Could not generate evidence name: %w", rerr)
		}

		name = suffix + "-" + name
		dst, err = os.OpenFile(filepath.Join(utils.EvidenceDir(), name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	}

	if err != nil {
		return "", fmt.Errorf("Could not store evidence: %w", err)
	}
	defer dst.Close()

	src, err := os.Open(ev.Path)
	if err != nil {
		return "", fmt.Errorf("Could not read staged evidence: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("Could not copy staged evidence: %w", err)
	}

	return EvidencePublicURL(name), nil
}

// RemoveEvidenceObject deletes a previously uploaded object given its public
// URL. Used to undo an upload when the report it belongs to was never stored.
func RemoveEvidenceObject(url string) {
	name := path.Base(url)

	if err := os.Remove(filepath.Join(utils.EvidenceDir(), name)); err != nil && !os.IsNotExist(err) {
		slog.Warn(fmt.Sprintf("Could not remove evidence object '%s': %v", name, err))
	}
}

func EvidencePublicURL(name string) string {
	base := strings.TrimRight(os.Getenv("EVIDENCE_BASE_URL"), "/")

	if len(base) < 1 {
		base = "/evidence"
	}

	return base + "/" + name
}
