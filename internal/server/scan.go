package server

import (
	"net/http"
	"strings"
	"time"
)

type scanRequest struct {
	URL string `json:"url"`
}

// HandleScanURL scores a URL and returns the verdict.
func (s *Server) HandleScanURL(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	start := time.Now()
	result := s.scanner.Score(r.Context(), req.URL)
	result.ProcessingMs = time.Since(start).Milliseconds()

	writeJSON(w, http.StatusOK, result)
}

// HandleHealth reports service liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "phishguard",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
