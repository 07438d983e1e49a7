package scan

import "regexp"

// brandNames are brands commonly impersonated in phishing campaigns.
// Each brand's real registrable domain is assumed to be <brand>.com.
var brandNames = []string{
	"paypal", "amazon", "apple", "microsoft", "google", "facebook",
	"instagram", "twitter", "linkedin", "dropbox", "netflix", "spotify",
	"chase", "wellsfargo", "bankofamerica", "citibank", "hsbc",
	"dhl", "fedex", "usps", "ups", "walmart", "ebay", "adobe",
	"office365", "outlook", "yahoo", "aol", "icloud", "whatsapp",
	"telegram", "coinbase", "binance", "blockchain", "steam", "roblox",
}

// legitimateDomains is the allowlist of known-good registrable root
// domains. Matching is exact against the root domain only, never
// against subdomains, so spoofed subdomains of lookalike roots are
// still scored.
var legitimateDomains = map[string]bool{
	"google.com": true, "facebook.com": true, "microsoft.com": true,
	"apple.com": true, "amazon.com": true, "paypal.com": true,
	"netflix.com": true, "dropbox.com": true, "github.com": true,
	"linkedin.com": true, "twitter.com": true, "x.com": true,
	"instagram.com": true, "youtube.com": true, "wikipedia.org": true,
	"reddit.com": true, "stackoverflow.com": true, "yahoo.com": true,
	"bing.com": true, "live.com": true, "outlook.com": true,
	"office.com": true, "spotify.com": true, "twitch.tv": true,
	"adobe.com": true, "zoom.us": true, "slack.com": true,
	"notion.so": true, "chase.com": true, "wellsfargo.com": true,
	"bankofamerica.com": true, "ebay.com": true, "walmart.com": true,
	"target.com": true, "bestbuy.com": true,
}

// suspiciousTLDs are top-level domains disproportionately abused in
// phishing (free, cheap, or visually confusing TLDs).
var suspiciousTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".gq",
	".top", ".click", ".download", ".work",
	".buzz", ".xyz", ".club", ".icu", ".cam",
	".loan", ".win", ".bid", ".stream", ".racing",
	".review", ".trade", ".date", ".faith",
	".zip", ".mov",
}

// phishingKeywords are credential-harvesting words checked against the
// URL path and query.
var phishingKeywords = []string{
	"login", "signin", "sign-in", "log-in", "verify", "verification",
	"secure", "security", "update", "confirm", "account", "suspend",
	"locked", "expired", "urgent", "alert", "warning", "password",
	"credential", "authenticate", "validate", "restore", "recover",
	"unusual", "unauthorized", "billing", "invoice", "payment",
	"wallet", "bank", "ssn", "social-security",
}

// shortenerHosts are URL shortener domains.
var shortenerHosts = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "is.gd", "v.gd",
	"buff.ly", "ow.ly", "short.link", "rb.gy", "cutt.ly",
	"shorturl.at", "tiny.cc", "bc.vc", "x.co",
}

// redirectParams are query parameter names used in open-redirect abuse.
var redirectParams = []string{
	"redirect", "url", "next", "return", "goto", "dest", "redir",
}

// executableExtensions are file extensions that have no business in a
// legitimate landing-page URL.
var executableExtensions = []string{
	".exe", ".scr", ".zip", ".rar", ".bat", ".cmd", ".msi",
}

// standardPorts are ports that do not count as a structural anomaly.
var standardPorts = map[string]bool{
	"80": true, "443": true, "8080": true, "8443": true,
}

// homoglyphMap canonicalizes common character substitutions used in
// typosquatting. Includes 4->a: without it the payp4l family is
// invisible to the canonical-host check.
var homoglyphMap = map[rune]rune{
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's', '@': 'a', '!': 'i',
}

// brandActionPatterns match a brand name near an action word anywhere
// in the URL. A single hit is a strong phishing signal.
var brandActionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`paypal.*(?:secure|update|verify|login|confirm)`),
	regexp.MustCompile(`amazon.*(?:account|suspend|verify|order)`),
	regexp.MustCompile(`apple.*(?:id|locked|verify|icloud)`),
	regexp.MustCompile(`microsoft.*(?:security|alert|office|login)`),
	regexp.MustCompile(`google.*(?:verify|security|drive|account)`),
	regexp.MustCompile(`facebook.*(?:disabled|account|verify)`),
	regexp.MustCompile(`netflix.*(?:payment|update|billing|account)`),
	regexp.MustCompile(`(?:bank|chase|wells).*(?:secure|verify|login|alert)`),
}

var (
	doubleTLDPattern = regexp.MustCompile(`\.(com|org|net|gov)\.[a-z]{2,}$`)
	percentEncoded   = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	hexIPPattern     = regexp.MustCompile(`^0x[0-9a-f]+`)
	longIntPattern   = regexp.MustCompile(`^\d{8,}$`)
)
