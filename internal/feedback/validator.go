package feedback

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/phishguard/phishguard/internal/model"
)

// Auto-approval requires this validation score with zero flags.
const autoApproveThreshold = 80

// Expertise bonuses added to the validation score.
var expertiseBonus = map[model.Expertise]int{
	model.ExpertiseExpert:       40,
	model.ExpertiseIntermediate: 25,
	model.ExpertiseBeginner:     10,
}

const spamPenalty = 30

// spamPhrases are indicators of throwaway or promotional comments.
var spamPhrases = []string{
	"spam", "click here", "free", "money", "win", "congratulations",
}

// trustedDomains are roots whose phishing reports need justification
// before they are believed.
var trustedDomains = []string{
	"google.com", "github.com", "microsoft.com", "apple.com",
}

// justifyingKeywords in a comment excuse labeling a trusted domain as
// phishing (the submitter is describing a lookalike, not the real site).
var justifyingKeywords = []string{"fake", "spoof", "suspicious"}

// strictURLPattern accepts scheme://host[:port][/path] submissions only.
var strictURLPattern = regexp.MustCompile(
	`^https?://` +
		`(?:(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z]{2,6}\.?|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)

// ValidationResult is the automated pre-screen verdict for a
// submitted correction.
type ValidationResult struct {
	Score  int
	Flags  []string
	Status model.FeedbackStatus
}

// Validate pre-screens a feedback record, producing its confidence
// score, flags, and initial status. The record's ConfidenceLevel and
// Expertise must already be defaulted by the caller.
func Validate(rec *model.FeedbackRecord) ValidationResult {
	var flags []string

	score := rec.ConfidenceLevel * 20
	score += expertiseBonus[rec.Expertise]

	comment := strings.ToLower(strings.TrimSpace(rec.Comment))

	spam := containsAny(comment, spamPhrases)
	if spam {
		score -= spamPenalty
	}

	if !strictURLPattern.MatchString(rec.URL) {
		flags = append(flags, model.FlagInvalidURLFormat)
	}

	if comment == "" {
		flags = append(flags, model.FlagNoExplanation)
	}

	if rec.ConfidenceLevel <= 2 {
		flags = append(flags, model.FlagLowConfidence)
	}

	if contradictsTrustedDomain(rec.URL, rec.UserLabel, comment) {
		flags = append(flags, model.FlagContradictory)
	}

	if spam || (comment != "" && len(comment) < 5) {
		flags = append(flags, model.FlagSuspiciousPattern)
	}

	status := model.FeedbackPending
	switch {
	case score >= autoApproveThreshold && len(flags) == 0:
		status = model.FeedbackAutoApproved
	case len(flags) > 2 || contains(flags, model.FlagSuspiciousPattern):
		status = model.FeedbackFlagged
	}

	// Comment-quality credit. Recorded in the score but deliberately
	// applied after the auto-approval decision.
	if len(comment) > 20 {
		score++
	}

	return ValidationResult{Score: score, Flags: flags, Status: status}
}

// contradictsTrustedDomain reports whether the feedback labels a
// known-trusted domain as phishing without a justifying keyword.
func contradictsTrustedDomain(rawURL string, label int, comment string) bool {
	if label != 1 {
		return false
	}

	host := hostOf(rawURL)
	trusted := false
	for _, d := range trustedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			trusted = true
			break
		}
	}
	if !trusted {
		return false
	}

	return !containsAny(comment, justifyingKeywords)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.ToLower(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
