package scan

import (
	"context"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/phishguard/phishguard/internal/model"
	"golang.org/x/net/publicsuffix"
)

// Classification thresholds on the 0-100 final score.
const (
	thresholdPhishing   = 60
	thresholdSuspicious = 35
)

// DefaultReputationTimeout bounds the external reputation lookup. The
// lookup is the only blocking step in a scan and must never delay a
// verdict past this budget.
const DefaultReputationTimeout = 5 * time.Second

// Scanner turns a raw URL into a ScanResult. Signal extraction and
// aggregation are pure; the optional reputation lookup and classifier
// probe are fail-open and never surface errors to the caller.
type Scanner struct {
	reputation ReputationClient
	classifier Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithReputation wires an external threat-intelligence lookup.
func WithReputation(c ReputationClient) Option {
	return func(s *Scanner) { s.reputation = c }
}

// WithClassifier wires an optional neural classifier whose probability
// is surfaced alongside the heuristic verdict.
func WithClassifier(c Classifier) Option {
	return func(s *Scanner) { s.classifier = c }
}

// WithReputationTimeout overrides the reputation lookup budget.
func WithReputationTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.timeout = d }
}

// NewScanner creates a Scanner. With no options it runs purely on
// heuristics.
func NewScanner(logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{
		timeout: DefaultReputationTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score analyzes a URL and returns its classification. It never fails:
// unparseable input degrades to best-effort host extraction and a
// missing scheme defaults to https.
func (s *Scanner) Score(ctx context.Context, rawURL string) model.ScanResult {
	u := parseURL(rawURL)

	signals := model.SignalScores{
		DomainSpoofing:     checkDomainSpoofing(u),
		SuspiciousPatterns: checkSuspiciousPatterns(u),
		URLStructure:       checkURLStructure(u),
		SuspiciousTLD:      checkSuspiciousTLD(u),
		IPAddress:          checkIPAddress(u),
	}

	// An exact allowlist match zeroes everything. Domain spoofing was
	// already computed first and only its own exact-match rule may
	// zero it, so lookalike roots keep their spoofing score.
	if u.knownLegit {
		signals.SuspiciousPatterns = 0
		signals.URLStructure = 0
		signals.SuspiciousTLD = 0
		signals.IPAddress = 0
	}

	heuristic := min(signals.Sum(), heuristicCeiling)

	reputation := s.reputationScore(ctx, rawURL)

	raw := heuristic + reputation
	final := min(int(math.Round(float64(raw)/60*100)), 100)
	class := Classify(final)

	result := model.ScanResult{
		URL:             rawURL,
		Domain:          u.host,
		RootDomain:      u.rootDomain,
		Signals:         signals,
		HeuristicScore:  heuristic,
		ReputationScore: reputation,
		FinalScore:      final,
		Classification:  class,
		RiskLevel:       riskLevel(class),
		Explanation:     explain(signals, reputation, class),
		KnownLegitimate: u.knownLegit,
		ScannedAt:       time.Now().UTC(),
	}

	if s.classifier != nil {
		if p, err := s.classifier.Probability(ctx, rawURL); err != nil {
			s.logger.Warn("classifier unavailable", "url", rawURL, "error", err)
		} else {
			result.MLProbability = &p
		}
	}

	return result
}

// Classify maps a 0-100 final score onto a classification tier.
func Classify(finalScore int) model.Classification {
	switch {
	case finalScore >= thresholdPhishing:
		return model.ClassPhishing
	case finalScore >= thresholdSuspicious:
		return model.ClassSuspicious
	default:
		return model.ClassLegitimate
	}
}

func riskLevel(c model.Classification) model.RiskLevel {
	switch c {
	case model.ClassPhishing:
		return model.RiskHigh
	case model.ClassSuspicious:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// reputationScore queries the external lookup under the configured
// timeout and scales the detection ratio into [0,20]. Any failure
// contributes 0.
func (s *Scanner) reputationScore(ctx context.Context, rawURL string) int {
	if s.reputation == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	det, err := s.reputation.Lookup(ctx, rawURL)
	if err != nil {
		s.logger.Warn("reputation lookup failed", "url", rawURL, "error", err)
		return 0
	}
	if det.Total <= 0 || det.Positives <= 0 {
		return 0
	}
	ratio := float64(det.Positives) / float64(det.Total)
	return min(int(math.Round(ratio*20)), 20)
}

// explain emits one clause per contributing signal category in fixed
// priority order, behind a classification banner.
func explain(signals model.SignalScores, reputation int, class model.Classification) []string {
	parts := make([]string, 0, 7)

	switch class {
	case model.ClassPhishing:
		parts = append(parts, "HIGH RISK: This URL shows strong indicators of being a phishing attempt.")
	case model.ClassSuspicious:
		parts = append(parts, "SUSPICIOUS: This URL has concerning characteristics.")
	default:
		parts = append(parts, "LEGITIMATE: This URL appears to be safe.")
	}

	if signals.DomainSpoofing > 0 {
		parts = append(parts, "Domain impersonates a well-known brand.")
	}
	if signals.SuspiciousPatterns > 0 {
		parts = append(parts, "Contains phishing keywords or patterns.")
	}
	if signals.IPAddress > 0 {
		parts = append(parts, "Uses an IP address instead of a domain name.")
	}
	if signals.SuspiciousTLD > 0 {
		parts = append(parts, "Uses a top-level domain commonly abused in phishing.")
	}
	if signals.URLStructure > 0 {
		parts = append(parts, "URL structure has anomalous characteristics.")
	}
	if reputation > 0 {
		parts = append(parts, "Flagged by external threat intelligence.")
	}

	return parts
}

// parseURL normalizes and parses a raw URL into the shared extractor
// view. It never fails; hosts are recovered best-effort.
func parseURL(rawURL string) parsedURL {
	lower := strings.ToLower(strings.TrimSpace(rawURL))

	p := parsedURL{raw: lower, scheme: "https"}

	// data: and javascript: URLs carry no authority; score them as-is.
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		p.scheme = lower[:strings.IndexByte(lower, ':')]
		return p
	}

	// Missing scheme defaults to a secure scheme. Documented
	// convenience, not an error path.
	if !strings.Contains(lower, "://") {
		lower = "https://" + lower
		p.raw = lower
	}

	u, err := url.Parse(lower)
	if err != nil || u.Host == "" {
		p.host = extractHostFallback(lower)
	} else {
		p.scheme = u.Scheme
		p.host = u.Hostname()
		p.port = u.Port()
		p.path = u.EscapedPath()
		p.query = u.RawQuery
	}

	p.rootDomain = rootDomain(p.host)
	p.knownLegit = legitimateDomains[p.rootDomain]
	return p
}

// extractHostFallback recovers a host from input that url.Parse
// rejected, so scoring can still proceed.
func extractHostFallback(raw string) string {
	s := raw
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	// Strip any userinfo, then cut at the first path/query delimiter.
	if idx := strings.LastIndexByte(firstSegment(s), '@'); idx >= 0 {
		s = s[idx+1:]
	}
	s = firstSegment(s)
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

func firstSegment(s string) string {
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		return s[:idx]
	}
	return s
}

// rootDomain returns the registrable domain for a host, per the public
// suffix list, with a last-two-labels fallback for hosts the list
// cannot resolve. IP literals are their own root.
func rootDomain(host string) string {
	if host == "" || isIPHost(host) {
		return host
	}
	if root, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return root
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}
