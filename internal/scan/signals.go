package scan

import (
	"net"
	"strings"
)

// Sub-score caps. The extractor caps sum to the heuristic ceiling.
const (
	capDomainSpoofing     = 20
	capSuspiciousPatterns = 20
	capURLStructure       = 15
	scoreSuspiciousTLD    = 12
	scoreDoubleTLD        = 8
	scoreIPAddress        = 15
	heuristicCeiling      = 40
)

// parsedURL is the normalized view of a URL shared by all extractors.
type parsedURL struct {
	raw        string // lowercased original URL
	scheme     string
	host       string // without port
	port       string // empty when none given
	path       string
	query      string
	rootDomain string
	knownLegit bool // root domain exactly on the allowlist
}

// checkDomainSpoofing detects brand impersonation in the host: a brand
// name appearing under someone else's root domain, homoglyph
// typosquatting, in-order fuzzy matches, and hyphenated brand bait.
// Returns 0 for an exact allowlist match. One hit per rule suffices.
func checkDomainSpoofing(u parsedURL) int {
	if u.knownLegit {
		return 0
	}

	score := 0

	for _, brand := range brandNames {
		if strings.Contains(u.host, brand) && u.rootDomain != brand+".com" {
			score += 12
			// Brand hiding in a subdomain label (paypal.evil.com).
			if strings.Contains(strings.TrimSuffix(u.host, u.rootDomain), brand) {
				score += 5
			}
			break
		}
	}

	// Homoglyph typosquatting: canonicalize substitutions and see
	// whether a brand becomes visible that the raw host hides.
	canonical := canonicalizeHost(u.host)
	if canonical != u.host {
		for _, brand := range brandNames {
			if strings.Contains(canonical, brand) && !strings.Contains(u.host, brand) {
				score += 15
				break
			}
		}
	}

	// Fuzzy in-order character match against each brand.
	for _, brand := range brandNames {
		if len(brand) < 4 {
			continue
		}
		if charMatchRatio(brand, u.host) > 0.75 && u.rootDomain != brand+".com" {
			score += 8
			break
		}
	}

	// Brand adjacent to a hyphen or underscore (paypal-login.com).
	for _, brand := range brandNames {
		if u.rootDomain == brand+".com" {
			continue
		}
		if idx := strings.Index(u.host, brand); idx >= 0 {
			rest := u.host[idx+len(brand):]
			if strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "_") {
				score += 10
				break
			}
		}
	}

	return min(score, capDomainSpoofing)
}

func canonicalizeHost(host string) string {
	return strings.Map(func(r rune) rune {
		if repl, ok := homoglyphMap[r]; ok {
			return repl
		}
		return r
	}, host)
}

// charMatchRatio returns the fraction of brand characters that appear
// in order within the host.
func charMatchRatio(brand, host string) float64 {
	if brand == "" {
		return 0
	}
	bi := 0
	for _, ch := range host {
		if bi < len(brand) && byte(ch) == brand[bi] {
			bi++
		}
	}
	return float64(bi) / float64(len(brand))
}

// checkSuspiciousPatterns scores phishing phrasing and URL trickery:
// brand+action wording, keyword density, dangerous schemes, credential
// delimiters, path double-slashes, and heavy percent-encoding.
func checkSuspiciousPatterns(u parsedURL) int {
	score := 0

	for _, re := range brandActionPatterns {
		if re.MatchString(u.raw) {
			score += 10
			break
		}
	}

	hits := 0
	for _, kw := range phishingKeywords {
		if strings.Contains(u.path, kw) || strings.Contains(u.query, kw) {
			hits++
		}
	}
	switch {
	case hits >= 3:
		score += 10
	case hits == 2:
		score += 6
	case hits == 1:
		score += 3
	}

	if strings.HasPrefix(u.raw, "data:") || strings.HasPrefix(u.raw, "javascript:") {
		score += 15
	}

	// userinfo@host credential-harvesting delimiter.
	if rest, ok := strings.CutPrefix(u.raw, u.scheme+"://"); ok {
		authority := rest
		if idx := strings.IndexByte(authority, '/'); idx >= 0 {
			authority = authority[:idx]
		}
		if strings.Contains(authority, "@") {
			score += 10
		}
	}

	if strings.Contains(u.path, "//") {
		score += 5
	}

	if len(percentEncoded.FindAllString(u.raw, -1)) > 5 {
		score += 5
	}

	return min(score, capSuspiciousPatterns)
}

// checkURLStructure scores structural anomalies: length, subdomain and
// path depth, scheme, shorteners, redirect params, executable payload
// extensions, and non-standard ports.
func checkURLStructure(u parsedURL) int {
	score := 0

	switch {
	case len(u.raw) > 200:
		score += 5
	case len(u.raw) > 100:
		score += 2
	}

	subdomains := strings.Count(u.host, ".") - 1
	switch {
	case subdomains >= 4:
		score += 8
	case subdomains >= 3:
		score += 5
	case subdomains >= 2:
		score += 2
	}

	if u.scheme != "https" {
		score += 4
	}

	for _, shortener := range shortenerHosts {
		if strings.Contains(u.host, shortener) {
			score += 5
			break
		}
	}

	depth := 0
	for _, seg := range strings.Split(u.path, "/") {
		if seg != "" {
			depth++
		}
	}
	switch {
	case depth >= 5:
		score += 4
	case depth >= 3:
		score += 2
	}

	if u.query != "" {
		for _, p := range redirectParams {
			if strings.Contains(u.query, p) {
				score += 3
				break
			}
		}
	}

	for _, ext := range executableExtensions {
		if strings.Contains(u.path, ext) {
			score += 6
			break
		}
	}

	if u.port != "" && !standardPorts[u.port] {
		score += 4
	}

	return min(score, capURLStructure)
}

// checkSuspiciousTLD flags hosts under commonly abused TLDs, and the
// double-TLD trick (.com.tk) at a reduced weight.
func checkSuspiciousTLD(u parsedURL) int {
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(u.host, tld) {
			return scoreSuspiciousTLD
		}
	}
	if doubleTLDPattern.MatchString(u.host) {
		return scoreDoubleTLD
	}
	return 0
}

// checkIPAddress flags literal-IP hosts, including hex and long-integer
// obfuscations.
func checkIPAddress(u parsedURL) int {
	if isIPHost(u.host) {
		return scoreIPAddress
	}
	if hexIPPattern.MatchString(u.host) || longIntPattern.MatchString(u.host) {
		return scoreIPAddress
	}
	return 0
}

// isIPHost reports whether the host is a literal IP. url.Hostname
// strips IPv6 brackets, so net.ParseIP covers both families.
func isIPHost(host string) bool {
	return net.ParseIP(host) != nil
}
