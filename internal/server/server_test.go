package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/phishguard/phishguard/internal/auth"
	"github.com/phishguard/phishguard/internal/feedback"
	"github.com/phishguard/phishguard/internal/scan"
	"github.com/phishguard/phishguard/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	srv := NewServer(Config{
		AdminUsername: "admin",
		AdminPassword: "hunter2",
		TokenSecret:   "test-secret",
	},
		scan.NewScanner(logger),
		feedback.NewService(db, logger),
		auth.New(auth.Config{
			Username:    "admin",
			Password:    "hunter2",
			TokenSecret: "test-secret",
		}, logger),
		logger,
	)
	t.Cleanup(srv.Stop)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:12345"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return out
}

func adminToken(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/admin/authenticate", "",
		map[string]string{"username": "admin", "password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticate status = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["token"].(string)
}

func TestScanURLEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/scan-url", "",
		map[string]string{"url": "http://payp4l-security.com/login"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["classification"] != "suspicious" {
		t.Errorf("classification = %v, want suspicious", body["classification"])
	}
	if body["final_score"].(float64) < 35 {
		t.Errorf("final_score = %v, want >= 35", body["final_score"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestScanURLBadRequest(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/scan-url", "", map[string]string{"url": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty url status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scan-url", bytes.NewBufferString("{not json"))
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d, want 400", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decodeBody(t, rec)["status"] != "healthy" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/admin/authenticate", "",
		map[string]string{"username": "admin", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateLockout(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 5; i++ {
		doJSON(t, srv, http.MethodPost, "/admin/authenticate", "",
			map[string]string{"username": "admin", "password": "wrong"})
	}
	rec := doJSON(t, srv, http.MethodPost, "/admin/authenticate", "",
		map[string]string{"username": "admin", "password": "hunter2"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 while locked out", rec.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/admin/pending-feedback", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/admin/pending-feedback", "forged-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	srv := newTestServer(t)
	token := adminToken(t, srv)

	if rec := doJSON(t, srv, http.MethodGet, "/admin/dashboard", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("dashboard with token status = %d", rec.Code)
	}

	if rec := doJSON(t, srv, http.MethodPost, "/admin/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	if rec := doJSON(t, srv, http.MethodGet, "/admin/dashboard", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", rec.Code)
	}
}

func TestFeedbackReviewFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/feedback", "", map[string]any{
		"url":     "https://evil-site.com/login",
		"label":   1,
		"comment": "asks for bank credentials",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	submitBody := decodeBody(t, rec)
	feedbackID := submitBody["feedback_id"].(string)
	if submitBody["status"] != "pending" {
		t.Fatalf("status = %v, want pending", submitBody["status"])
	}

	token := adminToken(t, srv)

	rec = doJSON(t, srv, http.MethodGet, "/admin/pending-feedback", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending status = %d", rec.Code)
	}
	if n := decodeBody(t, rec)["count"].(float64); n != 1 {
		t.Errorf("pending count = %v, want 1", n)
	}

	rec = doJSON(t, srv, http.MethodPost, "/admin/review-feedback", token, map[string]string{
		"feedback_id": feedbackID,
		"decision":    "approve",
		"comment":     "confirmed phishing",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("review status = %d: %s", rec.Code, rec.Body.String())
	}

	// A second decision on the same record finds nothing open.
	rec = doJSON(t, srv, http.MethodPost, "/admin/review-feedback", token, map[string]string{
		"feedback_id": feedbackID,
		"decision":    "reject",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("double review status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/admin/corpus", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("corpus status = %d", rec.Code)
	}
	if n := decodeBody(t, rec)["count"].(float64); n != 1 {
		t.Errorf("corpus count = %v, want 1", n)
	}
}

func TestFeedbackInputErrors(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/feedback", "", map[string]any{
		"url":   "https://x.com/",
		"label": 7,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad label status = %d, want 400", rec.Code)
	}
}

func TestReviewUnknownFeedback(t *testing.T) {
	srv := newTestServer(t)
	token := adminToken(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/admin/review-feedback", token, map[string]string{
		"feedback_id": "fb_missing",
		"decision":    "approve",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/admin/review-feedback", token, map[string]string{
		"feedback_id": "fb_missing",
		"decision":    "defer",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad decision status = %d, want 400", rec.Code)
	}
}

func TestBatchReview(t *testing.T) {
	srv := newTestServer(t)

	ids := make([]string, 0, 2)
	for _, url := range []string{"https://one.example/", "https://two.example/"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/feedback", "", map[string]any{
			"url": url, "label": 1, "comment": "collects card details",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("submit status = %d", rec.Code)
		}
		ids = append(ids, decodeBody(t, rec)["feedback_id"].(string))
	}

	token := adminToken(t, srv)
	rec := doJSON(t, srv, http.MethodPost, "/admin/batch-review", token, map[string]any{
		"reviews": []map[string]string{
			{"feedback_id": ids[0], "decision": "approve"},
			{"feedback_id": ids[1], "decision": "reject"},
			{"feedback_id": "fb_missing", "decision": "approve"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["succeeded"].(float64) != 2 || body["failed"].(float64) != 1 {
		t.Errorf("batch result = %s", rec.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/feedback", "", map[string]any{
		"url": "https://one.example/", "label": 1, "comment": "collects card details",
	})

	token := adminToken(t, srv)
	rec := doJSON(t, srv, http.MethodGet, "/admin/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	if total := decodeBody(t, rec)["total"].(float64); total != 1 {
		t.Errorf("total = %v, want 1", total)
	}
}

func TestAdminHealthReportsSessionOwner(t *testing.T) {
	srv := newTestServer(t)
	token := adminToken(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/admin/health", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decodeBody(t, rec)["admin"] != "admin" {
		t.Errorf("body = %s", rec.Body.String())
	}
}
