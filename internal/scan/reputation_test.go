package scan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestVirusTotalLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("missing apikey in query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"response_code": 1, "positives": 7, "total": 70}`))
	}))
	defer ts.Close()

	c := NewVirusTotalClient("test-key")
	c.SetEndpoint(ts.URL)

	det, err := c.Lookup(context.Background(), "http://bad.example/")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if det.Positives != 7 || det.Total != 70 {
		t.Errorf("detections = %+v, want 7/70", det)
	}
}

func TestVirusTotalNoAPIKey(t *testing.T) {
	c := NewVirusTotalClient("")
	det, err := c.Lookup(context.Background(), "http://bad.example/")
	if err != nil {
		t.Fatalf("Lookup without key: %v", err)
	}
	if det != (Detections{}) {
		t.Errorf("detections = %+v, want zero without an API key", det)
	}
}

func TestVirusTotalUnknownResource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code": 0}`))
	}))
	defer ts.Close()

	c := NewVirusTotalClient("test-key")
	c.SetEndpoint(ts.URL)

	det, err := c.Lookup(context.Background(), "http://unknown.example/")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if det != (Detections{}) {
		t.Errorf("detections = %+v, want neutral zero", det)
	}
}

func TestVirusTotalServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewVirusTotalClient("test-key")
	c.SetEndpoint(ts.URL)

	if _, err := c.Lookup(context.Background(), "http://bad.example/"); err == nil {
		t.Error("expected error on 503 response")
	}
}

func TestVirusTotalCachesVerdicts(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"response_code": 1, "positives": 3, "total": 60}`))
	}))
	defer ts.Close()

	c := NewVirusTotalClient("test-key")
	c.SetEndpoint(ts.URL)

	for i := 0; i < 3; i++ {
		if _, err := c.Lookup(context.Background(), "http://bad.example/"); err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1 (cached)", n)
	}
}

func TestVirusTotalContextTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	c := NewVirusTotalClient("test-key")
	c.SetEndpoint(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Lookup(ctx, "http://slow.example/"); err == nil {
		t.Error("expected error when context deadline expires")
	}
}
