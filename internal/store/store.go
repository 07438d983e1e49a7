package store

import (
	"context"
	"errors"

	"github.com/phishguard/phishguard/internal/model"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNotOpen indicates a feedback record exists but has already
	// left the open (pending/flagged) queue, so it cannot be decided
	// again.
	ErrNotOpen = errors.New("feedback not found in open queue")
)

// Store defines the persistence interface for feedback review and the
// training corpus. Implementations must make ResolveFeedback an atomic
// take-effect-exactly-once transition so concurrent admin decisions on
// the same id cannot both succeed.
type Store interface {
	// Feedback
	CreateFeedback(ctx context.Context, rec *model.FeedbackRecord) error
	GetFeedback(ctx context.Context, id string) (*model.FeedbackRecord, error)
	// ListOpenFeedback returns pending and flagged records, flagged
	// first, oldest first within each tier.
	ListOpenFeedback(ctx context.Context, limit int) ([]*model.FeedbackRecord, error)
	// ResolveFeedback moves an open record to a terminal status and
	// returns it. Returns ErrNotOpen when the record exists but is no
	// longer open, ErrNotFound when it never existed.
	ResolveFeedback(ctx context.Context, id string, status model.FeedbackStatus) (*model.FeedbackRecord, error)
	CountFeedbackByStatus(ctx context.Context) (map[model.FeedbackStatus]int, error)

	// Admin decisions (append-only audit log)
	CreateAdminDecision(ctx context.Context, d *model.AdminDecision) error
	ListRecentDecisions(ctx context.Context, limit int) ([]*model.AdminDecision, error)

	// Corpus
	// UpsertCorpusEntry inserts or replaces the entry for a normalized
	// URL. An existing entry survives unless the new one carries a
	// validation score at least as high.
	UpsertCorpusEntry(ctx context.Context, e *model.CorpusEntry) error
	GetCorpusEntry(ctx context.Context, normalizedURL string) (*model.CorpusEntry, error)
	ListCorpus(ctx context.Context, limit int) ([]*model.CorpusEntry, error)
}
