package model

import "time"

// Classification is the verdict tier assigned to a scanned URL.
type Classification string

const (
	ClassLegitimate Classification = "legitimate"
	ClassSuspicious Classification = "suspicious"
	ClassPhishing   Classification = "phishing"
)

// RiskLevel is the coarse severity bucket paired with a classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SignalScores holds the per-dimension sub-scores produced by the
// signal extractors. Each value is already clipped to its cap.
type SignalScores struct {
	DomainSpoofing     int `json:"domain_spoofing"`     // cap 20
	SuspiciousPatterns int `json:"suspicious_patterns"` // cap 20
	URLStructure       int `json:"url_structure"`       // cap 15
	SuspiciousTLD      int `json:"suspicious_tld"`      // flat 12, or 8 for double-TLD
	IPAddress          int `json:"ip_address"`          // flat 15
}

// Sum returns the uncapped total of all sub-scores.
func (s SignalScores) Sum() int {
	return s.DomainSpoofing + s.SuspiciousPatterns + s.URLStructure + s.SuspiciousTLD + s.IPAddress
}

// ScanResult is the outcome of scoring a single URL. It is immutable
// once produced and not persisted by the core.
type ScanResult struct {
	URL             string         `json:"url"`
	Domain          string         `json:"domain"`
	RootDomain      string         `json:"root_domain"`
	Signals         SignalScores   `json:"signals"`
	HeuristicScore  int            `json:"heuristic_score"` // capped sum, max 40
	MLProbability   *float64       `json:"ml_probability,omitempty"`
	ReputationScore int            `json:"reputation_score"` // 0-20, 0 when unavailable
	FinalScore      int            `json:"final_score"`      // 0-100
	Classification  Classification `json:"classification"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	Explanation     []string       `json:"explanation"`
	KnownLegitimate bool           `json:"known_legitimate"`
	ScannedAt       time.Time      `json:"scanned_at"`
	ProcessingMs    int64          `json:"processing_ms"`
}

// FeedbackStatus tracks a feedback record through its review lifecycle.
type FeedbackStatus string

const (
	FeedbackPending      FeedbackStatus = "pending"
	FeedbackAutoApproved FeedbackStatus = "auto_approved"
	FeedbackFlagged      FeedbackStatus = "flagged"
	FeedbackApproved     FeedbackStatus = "approved"
	FeedbackRejected     FeedbackStatus = "rejected"
)

// Open reports whether the status still admits an admin decision.
// auto_approved counts as resolved: it has already reached the corpus.
func (s FeedbackStatus) Open() bool {
	return s == FeedbackPending || s == FeedbackFlagged
}

// Terminal reports whether the status can never change again.
func (s FeedbackStatus) Terminal() bool {
	return s == FeedbackApproved || s == FeedbackRejected
}

// Expertise is the self-reported skill level of a feedback submitter.
type Expertise string

const (
	ExpertiseBeginner     Expertise = "beginner"
	ExpertiseIntermediate Expertise = "intermediate"
	ExpertiseExpert       Expertise = "expert"
)

// Validation flag reason codes attached by the feedback validator.
const (
	FlagInvalidURLFormat  = "invalid_url_format"
	FlagNoExplanation     = "no_explanation"
	FlagLowConfidence     = "low_confidence"
	FlagContradictory     = "contradictory_feedback"
	FlagSuspiciousPattern = "suspicious_pattern"
)

// FeedbackRecord is a user-submitted correction to a classification.
// Created at submission; mutated only by the review state machine.
type FeedbackRecord struct {
	ID              string         `json:"feedback_id"`
	URL             string         `json:"url"`
	UserLabel       int            `json:"user_label"` // 0 legitimate, 1 phishing
	Comment         string         `json:"comment"`
	ConfidenceLevel int            `json:"confidence_level"` // 1-5
	Expertise       Expertise      `json:"expertise"`
	UserID          string         `json:"user_id,omitempty"`
	Status          FeedbackStatus `json:"status"`
	ValidationScore int            `json:"validation_score"`
	Flags           []string       `json:"flags"` // stored as JSON in DB
	CreatedAt       time.Time      `json:"created_at"`
}

// AdminDecision is an append-only audit entry for a manual review.
type AdminDecision struct {
	ID         string    `json:"decision_id"`
	FeedbackID string    `json:"feedback_id"`
	Decision   string    `json:"decision"` // "approve" or "reject"
	AdminID    string    `json:"admin_id"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"timestamp"`
}

// CorpusEntry is one curated (url, label) pair produced by approved
// feedback. At most one entry exists per normalized URL.
type CorpusEntry struct {
	URL             string    `json:"url"`
	Label           int       `json:"label"`
	FeedbackID      string    `json:"feedback_id"` // provenance
	ValidationScore int       `json:"validation_score"`
	CreatedAt       time.Time `json:"timestamp"`
}

// ReviewMetrics summarizes manual review outcomes for the dashboard.
type ReviewMetrics struct {
	TotalReviewed int     `json:"total_reviewed"`
	Approved      int     `json:"approved"`
	Rejected      int     `json:"rejected"`
	ApprovalRate  float64 `json:"approval_rate"` // percent
}
