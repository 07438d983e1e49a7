package scan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// Detections is the verdict of an external threat-intelligence lookup:
// how many engines flagged the URL out of how many consulted.
type Detections struct {
	Positives int
	Total     int
}

// ReputationClient abstracts the threat-intelligence lookup for
// testing. Implementations must respect ctx cancellation.
type ReputationClient interface {
	Lookup(ctx context.Context, rawURL string) (Detections, error)
}

const defaultReputationEndpoint = "https://www.virustotal.com/vtapi/v2/url/report"

// VirusTotalClient queries the VirusTotal v2 URL report API. Verdicts
// are cached briefly and concurrent lookups for the same URL are
// collapsed into a single request.
type VirusTotalClient struct {
	apiKey   string
	endpoint string
	client   *retryablehttp.Client
	cache    *ttlCache[string, Detections]
	group    singleflight.Group
}

// NewVirusTotalClient creates a client for the given API key.
func NewVirusTotalClient(apiKey string) *VirusTotalClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &VirusTotalClient{
		apiKey:   apiKey,
		endpoint: defaultReputationEndpoint,
		client:   rc,
		cache:    newTTLCache[string, Detections](DefaultVerdictTTL),
	}
}

// SetEndpoint overrides the report endpoint (for testing).
func (c *VirusTotalClient) SetEndpoint(endpoint string) { c.endpoint = endpoint }

// Lookup fetches the detection counts for a URL. Errors are returned
// to the caller, which treats them as a zero contribution; this client
// never blocks a scan beyond the caller's context deadline.
func (c *VirusTotalClient) Lookup(ctx context.Context, rawURL string) (Detections, error) {
	if c.apiKey == "" {
		return Detections{}, nil
	}

	if det, ok := c.cache.Get(rawURL); ok {
		return det, nil
	}

	v, err, _ := c.group.Do(rawURL, func() (any, error) {
		det, err := c.fetch(ctx, rawURL)
		if err != nil {
			return Detections{}, err
		}
		c.cache.Set(rawURL, det)
		return det, nil
	})
	if err != nil {
		return Detections{}, err
	}
	return v.(Detections), nil
}

func (c *VirusTotalClient) fetch(ctx context.Context, rawURL string) (Detections, error) {
	q := url.Values{
		"apikey":   {c.apiKey},
		"resource": {rawURL},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Detections{}, fmt.Errorf("creating reputation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Detections{}, fmt.Errorf("reputation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Detections{}, fmt.Errorf("reputation API status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Detections{}, fmt.Errorf("reading reputation response: %w", err)
	}

	parsed := gjson.ParseBytes(body)
	if parsed.Get("response_code").Int() != 1 {
		// The API has no record for this URL; neutral verdict.
		return Detections{}, nil
	}

	return Detections{
		Positives: int(parsed.Get("positives").Int()),
		Total:     int(parsed.Get("total").Int()),
	}, nil
}
