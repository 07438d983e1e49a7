package scan

import (
	"testing"
	"time"
)

func TestTTLCache(t *testing.T) {
	c := newTTLCache[string, int](time.Hour)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := newTTLCache[string, int](10 * time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestTTLCacheNilReceiver(t *testing.T) {
	var c *ttlCache[string, int]
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("nil cache must always miss")
	}
	if c.Len() != 0 {
		t.Error("nil cache Len must be 0")
	}
}
