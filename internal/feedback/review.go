package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/store"
)

// Input errors, rejected before validation ever runs.
var (
	ErrInvalidLabel      = errors.New("label must be 0 (legitimate) or 1 (phishing)")
	ErrInvalidConfidence = errors.New("confidence level must be between 1 and 5")
	ErrInvalidExpertise  = errors.New("expertise must be beginner, intermediate, or expert")
	ErrInvalidDecision   = errors.New("decision must be approve or reject")
	ErrEmptyURL          = errors.New("url must not be empty")
)

// ErrNotInOpenQueue is returned when a decision targets a feedback id
// that is not (or no longer) awaiting review.
var ErrNotInOpenQueue = store.ErrNotOpen

// SubmitRequest is a user-submitted correction to a classification.
type SubmitRequest struct {
	URL             string          `json:"url"`
	Label           int             `json:"label"`
	Comment         string          `json:"comment"`
	ConfidenceLevel int             `json:"confidence_level"` // 0 means unspecified, defaults to 3
	Expertise       model.Expertise `json:"expertise"`
	UserID          string          `json:"user_id"`
}

// Decision values accepted by Review.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// Service owns the feedback lifecycle: automated validation at
// submission, the manual review queue, the admin decision audit log,
// and corpus insertion for approved records.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a feedback Service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// Submit validates and records a new feedback submission. The returned
// message is a user-facing status line.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*model.FeedbackRecord, string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, "", ErrEmptyURL
	}
	if req.Label != 0 && req.Label != 1 {
		return nil, "", ErrInvalidLabel
	}
	if req.ConfidenceLevel < 0 || req.ConfidenceLevel > 5 {
		return nil, "", ErrInvalidConfidence
	}

	confidence := req.ConfidenceLevel
	if confidence == 0 {
		confidence = 3
	}

	expertise := req.Expertise
	if expertise == "" {
		expertise = model.ExpertiseBeginner
	}
	switch expertise {
	case model.ExpertiseBeginner, model.ExpertiseIntermediate, model.ExpertiseExpert:
	default:
		return nil, "", ErrInvalidExpertise
	}

	now := time.Now().UTC()
	rec := &model.FeedbackRecord{
		ID:              newFeedbackID(now),
		URL:             req.URL,
		UserLabel:       req.Label,
		Comment:         req.Comment,
		ConfidenceLevel: confidence,
		Expertise:       expertise,
		UserID:          req.UserID,
		CreatedAt:       now,
	}

	result := Validate(rec)
	rec.Status = result.Status
	rec.ValidationScore = result.Score
	rec.Flags = result.Flags

	if err := s.store.CreateFeedback(ctx, rec); err != nil {
		return nil, "", fmt.Errorf("create feedback: %w", err)
	}

	s.logger.Info("feedback submitted",
		"feedback_id", rec.ID,
		"status", string(rec.Status),
		"validation_score", rec.ValidationScore,
		"flags", rec.Flags,
	)

	// Auto-approved feedback is already resolved: it goes straight to
	// the corpus without an admin decision entry.
	if rec.Status == model.FeedbackAutoApproved {
		if err := s.addToCorpus(ctx, rec); err != nil {
			return nil, "", fmt.Errorf("add auto-approved feedback to corpus: %w", err)
		}
	}

	return rec, statusMessage(rec.Status), nil
}

// Pending returns the open review queue, flagged records first, oldest
// first within each tier.
func (s *Service) Pending(ctx context.Context, limit int) ([]*model.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListOpenFeedback(ctx, limit)
}

// Review applies an admin decision to an open feedback record. The
// transition takes effect exactly once: a second decision on the same
// id fails with ErrNotInOpenQueue. Approvals reach the corpus;
// rejections only record the reason.
func (s *Service) Review(ctx context.Context, feedbackID, decision, comment, adminID string) error {
	var target model.FeedbackStatus
	switch strings.ToLower(decision) {
	case DecisionApprove:
		target = model.FeedbackApproved
	case DecisionReject:
		target = model.FeedbackRejected
	default:
		return ErrInvalidDecision
	}

	rec, err := s.store.ResolveFeedback(ctx, feedbackID, target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotOpen) {
			return ErrNotInOpenQueue
		}
		return fmt.Errorf("resolve feedback: %w", err)
	}

	if target == model.FeedbackApproved {
		if err := s.addToCorpus(ctx, rec); err != nil {
			return fmt.Errorf("add approved feedback to corpus: %w", err)
		}
	}

	if err := s.store.CreateAdminDecision(ctx, &model.AdminDecision{
		ID:         uuid.New().String(),
		FeedbackID: feedbackID,
		Decision:   strings.ToLower(decision),
		AdminID:    adminID,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("record admin decision: %w", err)
	}

	s.logger.Info("feedback reviewed",
		"feedback_id", feedbackID,
		"decision", strings.ToLower(decision),
		"admin_id", adminID,
	)
	return nil
}

// DashboardData summarizes the review queue for the admin dashboard.
type DashboardData struct {
	PendingCount    int                    `json:"pending_count"`
	FlaggedCount    int                    `json:"flagged_count"`
	RecentDecisions []*model.AdminDecision `json:"recent_decisions"`
	Metrics         model.ReviewMetrics    `json:"quality_metrics"`
}

// Dashboard collects queue counts, recent decisions, and review
// quality metrics.
func (s *Service) Dashboard(ctx context.Context) (*DashboardData, error) {
	counts, err := s.store.CountFeedbackByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}

	recent, err := s.store.ListRecentDecisions(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("list recent decisions: %w", err)
	}
	if recent == nil {
		recent = []*model.AdminDecision{}
	}

	approved := counts[model.FeedbackApproved]
	rejected := counts[model.FeedbackRejected]
	metrics := model.ReviewMetrics{
		TotalReviewed: approved + rejected,
		Approved:      approved,
		Rejected:      rejected,
	}
	if metrics.TotalReviewed > 0 {
		metrics.ApprovalRate = float64(approved) / float64(metrics.TotalReviewed) * 100
	}

	return &DashboardData{
		PendingCount:    counts[model.FeedbackPending],
		FlaggedCount:    counts[model.FeedbackFlagged],
		RecentDecisions: recent,
		Metrics:         metrics,
	}, nil
}

// StatusCounts returns the per-status feedback totals.
func (s *Service) StatusCounts(ctx context.Context) (map[model.FeedbackStatus]int, error) {
	return s.store.CountFeedbackByStatus(ctx)
}

// Corpus returns the most recent curated training entries.
func (s *Service) Corpus(ctx context.Context, limit int) ([]*model.CorpusEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.store.ListCorpus(ctx, limit)
}

func (s *Service) addToCorpus(ctx context.Context, rec *model.FeedbackRecord) error {
	return s.store.UpsertCorpusEntry(ctx, &model.CorpusEntry{
		URL:             NormalizeURL(rec.URL),
		Label:           rec.UserLabel,
		FeedbackID:      rec.ID,
		ValidationScore: rec.ValidationScore,
		CreatedAt:       time.Now().UTC(),
	})
}

// newFeedbackID builds a unique, time-ordered id.
func newFeedbackID(now time.Time) string {
	return fmt.Sprintf("fb_%s_%s", now.Format("20060102_150405"), uuid.New().String()[:8])
}

// NormalizeURL canonicalizes a URL for corpus de-duplication:
// lowercased scheme and host, default ports stripped, fragment
// dropped, trailing slash removed.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" &&
		!(u.Scheme == "http" && port == "80") &&
		!(u.Scheme == "https" && port == "443") {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func statusMessage(status model.FeedbackStatus) string {
	switch status {
	case model.FeedbackAutoApproved:
		return "Thank you! Your feedback has been automatically approved."
	case model.FeedbackFlagged:
		return "Thank you! Your feedback has been flagged for detailed review."
	case model.FeedbackPending:
		return "Thank you! Your feedback is pending admin review."
	default:
		return "Feedback received."
	}
}
