package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/utils"
)

var ErrNoDraft = errors.New("No saved draft was found.")

// DraftStore is the durable key-value slot holding in-progress submissions.
// The production store lives in Redis; tests provide an in-memory one.
type DraftStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cacheDraftStore struct{}

func (cacheDraftStore) Get(ctx context.Context, key string) (string, error) {
	v, err := app.Cache().Do(ctx, app.Cache().B().Get().Key(key).Build()).ToString()
	if err != nil {
		if errors.Is(err, rueidis.Nil) {
			return "", ErrNoDraft
		}

		return "", err
	}

	return v, nil
}

func (cacheDraftStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return app.Cache().Do(ctx, app.Cache().B().Set().Key(key).Value(value).Ex(ttl).Build()).Error()
}

func (cacheDraftStore) Delete(ctx context.Context, key string) error {
	return app.Cache().Do(ctx, app.Cache().B().Del().Key(key).Build()).Error()
}

var (
	drafts     DraftStore
	onceDrafts sync.Once
)

func Drafts() DraftStore {
	onceDrafts.Do(func() {
		drafts = cacheDraftStore{}
	})

	return drafts
}

func submissionKey(id uuid.UUID) string {
	return "draft:" + id.String()
}

// SaveSubmission persists the full session state after every change.
func SaveSubmission(ctx context.Context, store DraftStore, s *Submission) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("Could not serialize submission: %w", err)
	}

	return store.Set(ctx, submissionKey(s.ID), string(payload), utils.DraftExpiration())
}

// LoadSubmission fetches the live session state for mid-flow requests.
func LoadSubmission(ctx context.Context, store DraftStore, id uuid.UUID) (*Submission, error) {
	payload, err := store.Get(ctx, submissionKey(id))
	if err != nil {
		return nil, err
	}

	s := &Submission{}
	if err := json.Unmarshal([]byte(payload), s); err != nil {
		return nil, fmt.Errorf("Could not decode submission: %w", err)
	}

	if s.Errors == nil {
		s.Errors = map[string][]string{}
	}

	return s, nil
}

// RestoreDraft resumes an abandoned submission: field values come back, but
// the flow restarts at step one and the staged file is not restored. Any
// orphaned staging file is discarded on the way.
func RestoreDraft(ctx context.Context, store DraftStore, id uuid.UUID) (*Submission, error) {
	saved, err := LoadSubmission(ctx, store, id)
	if err != nil {
		return nil, err
	}

	// An untouched session has nothing worth resuming.
	if !saved.Touched {
		return nil, ErrNoDraft
	}

	if saved.Evidence != nil {
		DiscardEvidence(saved.Evidence)
	}

	s := NewSubmission()
	s.ID = saved.ID
	s.Fields = saved.Fields
	s.Touched = saved.Touched

	return s, nil
}

// ClearDraft removes the persisted draft and staged evidence, resetting the
// submission to its initial state.
func ClearDraft(ctx context.Context, store DraftStore, s *Submission) error {
	if s.Evidence != nil {
		DiscardEvidence(s.Evidence)
	}

	if err := store.Delete(ctx, submissionKey(s.ID)); err != nil {
		slog.Error(fmt.Sprintf("Could not delete draft '%s': %v", s.ID, err))
		return err
	}

	id := s.ID
	*s = *NewSubmission()
	s.ID = id

	return nil
}
