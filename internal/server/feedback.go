package server

import (
	"errors"
	"net/http"

	"github.com/phishguard/phishguard/internal/feedback"
)

// HandleFeedbackSubmit accepts a user feedback submission, validates
// it, and queues it for review.
func (s *Server) HandleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	var req feedback.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, message, err := s.feedback.Submit(r.Context(), req)
	if err != nil {
		if isInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("feedback submission failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feedback_id":      rec.ID,
		"status":           rec.Status,
		"validation_score": rec.ValidationScore,
		"flags":            rec.Flags,
		"message":          message,
	})
}

func isInputError(err error) bool {
	return errors.Is(err, feedback.ErrEmptyURL) ||
		errors.Is(err, feedback.ErrInvalidLabel) ||
		errors.Is(err, feedback.ErrInvalidConfidence) ||
		errors.Is(err, feedback.ErrInvalidExpertise) ||
		errors.Is(err, feedback.ErrInvalidDecision)
}
