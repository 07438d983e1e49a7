package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phishguard/phishguard/internal/auth"
	"github.com/phishguard/phishguard/internal/feedback"
	"github.com/phishguard/phishguard/internal/scan"
)

// Config holds server configuration.
type Config struct {
	ListenAddr string
	DBPath     string

	AdminUsername string
	AdminPassword string
	TokenSecret   string

	VirusTotalKey string
	ClassifierURL string
}

// Server is the main HTTP server for the phishing detection service.
type Server struct {
	config   Config
	scanner  *scan.Scanner
	feedback *feedback.Service
	auth     *auth.Authenticator
	rl       *RateLimiter
	router   chi.Router
	logger   *slog.Logger
}

// NewServer creates a new Server from the given config and wired
// services.
func NewServer(cfg Config, scanner *scan.Scanner, fb *feedback.Service, authn *auth.Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		config:   cfg,
		scanner:  scanner,
		feedback: fb,
		auth:     authn,
		rl:       NewRateLimiter(DefaultRateLimiterConfig()),
		logger:   logger,
	}
	srv.router = srv.routes()
	return srv
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(SecurityHeadersMiddleware)

	// Public API.
	r.Group(func(r chi.Router) {
		r.With(limitMiddleware(s.rl, "scan", s.rl.config.ScanRequestsPerMin)).
			Post("/api/scan-url", s.HandleScanURL)
		r.With(limitMiddleware(s.rl, "feedback", s.rl.config.FeedbackRequestsPerMin)).
			Post("/api/feedback", s.HandleFeedbackSubmit)
		r.Get("/api/health", s.HandleHealth)
	})

	// Admin API.
	r.Post("/admin/authenticate", s.HandleAdminAuthenticate)
	r.Group(func(r chi.Router) {
		r.Use(s.RequireAdmin)

		r.Post("/admin/logout", s.HandleAdminLogout)
		r.Get("/admin/pending-feedback", s.HandlePendingFeedback)
		r.Post("/admin/review-feedback", s.HandleReviewFeedback)
		r.Post("/admin/batch-review", s.HandleBatchReview)
		r.Get("/admin/dashboard", s.HandleDashboard)
		r.Get("/admin/stats", s.HandleFeedbackStats)
		r.Get("/admin/corpus", s.HandleCorpus)
		r.Get("/admin/health", s.HandleAdminHealth)
	})

	return r
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stop releases server resources.
func (s *Server) Stop() {
	s.rl.Stop()
}

// RequireAdmin validates the Bearer token and stores the admin claims
// in the request context. Requests without a valid session get 401.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		claims, err := s.auth.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAdmin(r.Context(), claims)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
