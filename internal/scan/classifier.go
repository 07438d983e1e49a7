package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Classifier is the contract a neural classifier service must satisfy
// when consulted: a phishing probability in [0,1] for a URL, or an
// error when unavailable. The probability is reported alongside the
// heuristic verdict; it never alters the canonical decision path.
type Classifier interface {
	Probability(ctx context.Context, rawURL string) (float64, error)
}

// HTTPClassifier consults a remote model-serving endpoint that accepts
// {"url": ...} and answers {"probability": ...}.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifier creates a classifier client for the given endpoint.
func NewHTTPClassifier(endpoint string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 3 * time.Second},
	}
}

// Probability asks the classifier service to score a URL.
func (c *HTTPClassifier) Probability(ctx context.Context, rawURL string) (float64, error) {
	payload, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return 0, fmt.Errorf("encoding classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("creating classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("classifier status %d", resp.StatusCode)
	}

	var result struct {
		Probability float64 `json:"probability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding classifier response: %w", err)
	}

	if result.Probability < 0 || result.Probability > 1 {
		return 0, fmt.Errorf("classifier probability %v out of range", result.Probability)
	}
	return result.Probability, nil
}
