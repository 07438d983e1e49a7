package scan

import (
	"strings"
	"testing"
)

func TestCheckDomainSpoofing(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"exact allowlist match", "https://paypal.com/signin", 0},
		{"brand under foreign root", "https://paypal.evil.com/", capDomainSpoofing},
		{"homoglyph substitution", "http://payp4l-security.com/login", 15},
		{"brand with hyphen bait", "https://paypal-login.com/", capDomainSpoofing},
		{"unrelated domain", "https://example.org/", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkDomainSpoofing(parseURL(tt.url))
			if got != tt.want {
				t.Errorf("checkDomainSpoofing(%q) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestCheckDomainSpoofingNeverExceedsCap(t *testing.T) {
	// Every rule fires at once: literal brand, subdomain placement,
	// hyphen bait, and a fuzzy match.
	got := checkDomainSpoofing(parseURL("https://paypal-verify.paypal.evil.com/"))
	if got > capDomainSpoofing {
		t.Errorf("score %d exceeds cap %d", got, capDomainSpoofing)
	}
}

func TestCanonicalizeHost(t *testing.T) {
	got := canonicalizeHost("payp4l-s3cure.l0gin.com")
	want := "paypal-secure.login.com"
	if got != want {
		t.Errorf("canonicalizeHost = %q, want %q", got, want)
	}
}

func TestCharMatchRatio(t *testing.T) {
	if r := charMatchRatio("paypal", "paypal.com"); r != 1.0 {
		t.Errorf("full match ratio = %f, want 1.0", r)
	}
	if r := charMatchRatio("paypal", "zzz.example.org"); r >= 0.75 {
		t.Errorf("unrelated host ratio = %f, want < 0.75", r)
	}
	if r := charMatchRatio("", "host"); r != 0 {
		t.Errorf("empty brand ratio = %f, want 0", r)
	}
}

func TestCheckSuspiciousPatterns(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"single keyword", "https://example.com/login", 3},
		{"two keywords", "https://example.com/secure/login", 6},
		{"three or more keywords", "https://example.com/verify/account/update", 10},
		{"brand action phrase", "https://paypal-team.com/verify", 13},
		{"javascript scheme", "javascript:alert(1)", 15},
		{"at sign in authority", "https://user@evil.com/", 10},
		{"double slash in path", "https://example.com/a//b", 5},
		{"clean", "https://example.com/about", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkSuspiciousPatterns(parseURL(tt.url))
			if got != tt.want {
				t.Errorf("checkSuspiciousPatterns(%q) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestCheckSuspiciousPatternsHeavyEncoding(t *testing.T) {
	u := "https://example.com/p?q=" + strings.Repeat("%41", 6)
	if got := checkSuspiciousPatterns(parseURL(u)); got != 5 {
		t.Errorf("heavy percent-encoding score = %d, want 5", got)
	}
}

func TestCheckURLStructure(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"plain https", "https://example.com/", 0},
		{"http scheme", "http://example.com/", 4},
		{"two subdomain labels", "https://a.b.example.com/", 2},
		{"four subdomain labels", "https://a.b.c.d.example.com/", 8},
		{"shortener host", "https://bit.ly/abc", 5},
		{"deep path", "https://example.com/a/b/c", 2},
		{"redirect parameter", "https://example.com/?redirect=x", 3},
		{"executable extension", "https://example.com/file.exe", 6},
		{"non-standard port", "https://example.com:8888/", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkURLStructure(parseURL(tt.url))
			if got != tt.want {
				t.Errorf("checkURLStructure(%q) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestCheckURLStructureLongURL(t *testing.T) {
	long := "https://example.com/?q=" + strings.Repeat("a", 200)
	if got := checkURLStructure(parseURL(long)); got < 5 {
		t.Errorf("long URL score = %d, want >= 5", got)
	}
}

func TestCheckSuspiciousTLD(t *testing.T) {
	if got := checkSuspiciousTLD(parseURL("https://free-prizes.tk/")); got != scoreSuspiciousTLD {
		t.Errorf("abused TLD score = %d, want %d", got, scoreSuspiciousTLD)
	}
	if got := checkSuspiciousTLD(parseURL("https://paypal.com.br/")); got != scoreDoubleTLD {
		t.Errorf("double TLD score = %d, want %d", got, scoreDoubleTLD)
	}
	if got := checkSuspiciousTLD(parseURL("https://example.org/")); got != 0 {
		t.Errorf("normal TLD score = %d, want 0", got)
	}
}

func TestCheckIPAddress(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"http://192.168.1.1/", scoreIPAddress},
		{"http://[2001:db8::1]/", scoreIPAddress},
		{"http://0x7f000001/", scoreIPAddress},
		{"http://2130706433/", scoreIPAddress},
		{"https://example.com/", 0},
	}
	for _, tt := range tests {
		if got := checkIPAddress(parseURL(tt.url)); got != tt.want {
			t.Errorf("checkIPAddress(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestParseURL(t *testing.T) {
	u := parseURL("EXAMPLE.com/Path")
	if u.scheme != "https" {
		t.Errorf("default scheme = %q, want https", u.scheme)
	}
	if u.host != "example.com" {
		t.Errorf("host = %q, want example.com", u.host)
	}

	u = parseURL("https://sub.example.co.uk/x")
	if u.rootDomain != "example.co.uk" {
		t.Errorf("rootDomain = %q, want example.co.uk", u.rootDomain)
	}

	u = parseURL("http://10.0.0.1:9999/a")
	if u.rootDomain != "10.0.0.1" {
		t.Errorf("IP rootDomain = %q, want the IP itself", u.rootDomain)
	}
	if u.port != "9999" {
		t.Errorf("port = %q, want 9999", u.port)
	}

	u = parseURL("data:text/html;base64,AAAA")
	if u.scheme != "data" || u.host != "" {
		t.Errorf("data URL parsed as scheme=%q host=%q", u.scheme, u.host)
	}
}
