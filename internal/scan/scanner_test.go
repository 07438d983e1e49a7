package scan

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/phishguard/phishguard/internal/model"
)

// stubReputation returns fixed detections without any network traffic.
type stubReputation struct {
	det Detections
	err error
}

func (s stubReputation) Lookup(_ context.Context, _ string) (Detections, error) {
	return s.det, s.err
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Classification
	}{
		{0, model.ClassLegitimate},
		{34, model.ClassLegitimate},
		{35, model.ClassSuspicious},
		{59, model.ClassSuspicious},
		{60, model.ClassPhishing},
		{100, model.ClassPhishing},
	}
	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScoreKnownLegitimate(t *testing.T) {
	s := NewScanner(testLogger())
	res := s.Score(context.Background(), "https://google.com/search?q=test")

	if !res.KnownLegitimate {
		t.Error("expected google.com to be known legitimate")
	}
	if res.FinalScore != 0 {
		t.Errorf("final score = %d, want 0", res.FinalScore)
	}
	if res.Classification != model.ClassLegitimate {
		t.Errorf("classification = %q, want legitimate", res.Classification)
	}
	if res.Signals.Sum() != 0 {
		t.Errorf("signals = %+v, want all zero", res.Signals)
	}
}

func TestScoreHomoglyphSpoof(t *testing.T) {
	s := NewScanner(testLogger())
	res := s.Score(context.Background(), "http://payp4l-security.com/login")

	if res.Signals.DomainSpoofing == 0 {
		t.Error("expected domain spoofing signal to fire")
	}
	if res.Signals.SuspiciousPatterns == 0 {
		t.Error("expected suspicious patterns signal to fire")
	}
	if res.FinalScore < 35 {
		t.Errorf("final score = %d, want >= 35", res.FinalScore)
	}
	if res.Classification == model.ClassLegitimate {
		t.Errorf("classification = %q, want suspicious or phishing", res.Classification)
	}
}

func TestScoreIPHost(t *testing.T) {
	s := NewScanner(testLogger())
	res := s.Score(context.Background(), "https://192.168.1.1/secure/login")

	if res.Signals.IPAddress != 15 {
		t.Errorf("IP signal = %d, want 15", res.Signals.IPAddress)
	}
	if res.Classification != model.ClassSuspicious {
		t.Errorf("classification = %q, want suspicious", res.Classification)
	}
}

func TestScoreObviousPhishing(t *testing.T) {
	s := NewScanner(testLogger())
	res := s.Score(context.Background(), "http://paypal.secure-login.tk/verify-account/update")

	if res.HeuristicScore != heuristicCeiling {
		t.Errorf("heuristic score = %d, want ceiling %d", res.HeuristicScore, heuristicCeiling)
	}
	if res.Classification != model.ClassPhishing {
		t.Errorf("classification = %q, want phishing", res.Classification)
	}
	if res.RiskLevel != model.RiskHigh {
		t.Errorf("risk level = %q, want high", res.RiskLevel)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScanner(testLogger())
	url := "http://paypal.secure-login.tk/verify-account/update"

	first := s.Score(context.Background(), url)
	for i := 0; i < 5; i++ {
		got := s.Score(context.Background(), url)
		if got.FinalScore != first.FinalScore || got.Signals != first.Signals {
			t.Fatalf("run %d differs: %+v vs %+v", i, got.Signals, first.Signals)
		}
	}
}

func TestScoreUnparseableInput(t *testing.T) {
	s := NewScanner(testLogger())
	for _, u := range []string{"", ":::", "ht!tp://%%%", "   "} {
		res := s.Score(context.Background(), u)
		if res.FinalScore < 0 || res.FinalScore > 100 {
			t.Errorf("Score(%q) final = %d, out of range", u, res.FinalScore)
		}
	}
}

func TestScoreWithReputation(t *testing.T) {
	s := NewScanner(testLogger(), WithReputation(stubReputation{det: Detections{Positives: 10, Total: 20}}))
	res := s.Score(context.Background(), "https://example.org/")

	if res.ReputationScore != 10 {
		t.Errorf("reputation score = %d, want 10 (half of max)", res.ReputationScore)
	}
}

func TestScoreReputationFailOpen(t *testing.T) {
	s := NewScanner(testLogger(), WithReputation(stubReputation{err: errors.New("upstream down")}))
	res := s.Score(context.Background(), "https://example.org/")

	if res.ReputationScore != 0 {
		t.Errorf("reputation score = %d, want 0 on lookup failure", res.ReputationScore)
	}
}

func TestScoreReputationZeroDetections(t *testing.T) {
	s := NewScanner(testLogger(), WithReputation(stubReputation{det: Detections{Positives: 0, Total: 50}}))
	res := s.Score(context.Background(), "https://example.org/")

	if res.ReputationScore != 0 {
		t.Errorf("reputation score = %d, want 0 with no positives", res.ReputationScore)
	}
}

func TestScoreMaxCombined(t *testing.T) {
	// Heuristic ceiling plus a unanimous reputation verdict saturates
	// the final score.
	s := NewScanner(testLogger(), WithReputation(stubReputation{det: Detections{Positives: 40, Total: 40}}))
	res := s.Score(context.Background(), "http://paypal.secure-login.tk/verify-account/update")

	if res.FinalScore != 100 {
		t.Errorf("final score = %d, want 100", res.FinalScore)
	}
}

func TestExplanationClauses(t *testing.T) {
	s := NewScanner(testLogger())
	res := s.Score(context.Background(), "http://paypal.secure-login.tk/verify-account/update")

	if len(res.Explanation) < 3 {
		t.Fatalf("explanation = %v, want banner plus per-signal clauses", res.Explanation)
	}
	if res.Explanation[0] != "HIGH RISK: This URL shows strong indicators of being a phishing attempt." {
		t.Errorf("banner = %q", res.Explanation[0])
	}
}
