package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/phishguard/phishguard/internal/auth"
	"github.com/phishguard/phishguard/internal/feedback"
)

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleAdminAuthenticate exchanges admin credentials for a session
// token. Failed attempts count toward the lockout.
func (s *Server) HandleAdminAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, expiresIn, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrLockedOut) {
			writeError(w, http.StatusTooManyRequests, "too many failed attempts, try again later")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(expiresIn.Seconds()),
	})
}

// HandleAdminLogout revokes the current session token.
func (s *Server) HandleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandlePendingFeedback returns feedback awaiting review, flagged
// items first.
func (s *Server) HandlePendingFeedback(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	records, err := s.feedback.Pending(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing pending feedback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending_feedback": records,
		"count":            len(records),
	})
}

type reviewRequest struct {
	FeedbackID string `json:"feedback_id"`
	Decision   string `json:"decision"`
	Comment    string `json:"comment"`
}

// HandleReviewFeedback applies an admin decision to one feedback
// record.
func (s *Server) HandleReviewFeedback(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	claims, _ := AdminFromContext(r.Context())

	if err := s.reviewOne(r, req, claims); err != nil {
		s.writeReviewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"feedback_id": req.FeedbackID,
		"decision":    req.Decision,
		"reviewed_by": claims.Username,
	})
}

type batchReviewRequest struct {
	Reviews []reviewRequest `json:"reviews"`
}

type batchReviewResult struct {
	FeedbackID string `json:"feedback_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// HandleBatchReview applies admin decisions to multiple feedback
// records in one call. Each item succeeds or fails independently.
func (s *Server) HandleBatchReview(w http.ResponseWriter, r *http.Request) {
	var req batchReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Reviews) == 0 {
		writeError(w, http.StatusBadRequest, "reviews must not be empty")
		return
	}
	claims, _ := AdminFromContext(r.Context())

	results := make([]batchReviewResult, 0, len(req.Reviews))
	succeeded := 0
	for _, item := range req.Reviews {
		res := batchReviewResult{FeedbackID: item.FeedbackID}
		if err := s.reviewOne(r, item, claims); err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			succeeded++
		}
		results = append(results, res)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

func (s *Server) reviewOne(r *http.Request, req reviewRequest, claims auth.Claims) error {
	return s.feedback.Review(r.Context(), req.FeedbackID, req.Decision, req.Comment, claims.Username)
}

func (s *Server) writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feedback.ErrNotInOpenQueue):
		writeError(w, http.StatusNotFound, "feedback not found in open queue")
	case errors.Is(err, feedback.ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("review failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply review")
	}
}

// HandleDashboard returns queue counts, recent decisions, and review
// metrics.
func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.feedback.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleFeedbackStats returns feedback counts by status.
func (s *Server) HandleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.feedback.StatusCounts(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"by_status": counts,
		"total":     total,
	})
}

// HandleCorpus returns the approved training corpus.
func (s *Server) HandleCorpus(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 500)
	entries, err := s.feedback.Corpus(r.Context(), limit)
	if err != nil {
		s.logger.Error("corpus query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load corpus")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// HandleAdminHealth reports health for the authenticated admin
// surface, including the session owner.
func (s *Server) HandleAdminHealth(w http.ResponseWriter, r *http.Request) {
	claims, _ := AdminFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"admin":    claims.Username,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{"review_queue": "ok", "auth": "ok"},
	})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
