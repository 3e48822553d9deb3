package guardrail

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Quality gate flags.
const (
	FlagSpamCaps           = "spam_caps"
	FlagSpamExclamation    = "spam_excessive_exclamation"
	FlagSpamClickbait      = "spam_clickbait_subject"
	FlagSubjectTooLong     = "subject_too_long"
	FlagNeedsWhitespace    = "format_needs_whitespace"
	FlagRewriteUnderTarget = "rewrite_under_target"
	FlagRewriteOverTarget  = "rewrite_over_target"
)

// SubjectCharLimit is the maximum allowed subject length.
const SubjectCharLimit = 80

// Body length past which at least two blank-line paragraph breaks are
// expected.
const bodyWhitespaceThreshold = 400

// RewriteTolerance widens each rewrite-budget range on both ends, in
// percentage points.
const RewriteTolerance = 10.0

// RewriteBudget is the allowed rewrite-ratio range for one variant id,
// in percent of the seed template changed.
type RewriteBudget struct {
	Min float64
	Max float64
}

// Per-variant rewrite budgets. Later variants are expected to stray
// further from the seed template.
var rewriteBudgets = map[string]RewriteBudget{
	"A": {Min: 30, Max: 60},
	"B": {Min: 40, Max: 70},
	"C": {Min: 50, Max: 80},
}

// BudgetFor returns the rewrite budget for a variant id, defaulting to
// variant A's budget for unknown ids.
func BudgetFor(variantID string) RewriteBudget {
	if b, ok := rewriteBudgets[strings.ToUpper(variantID)]; ok {
		return b
	}
	return rewriteBudgets["A"]
}

// Hard flags alone can force a variant into a blocked state; everything
// else is a soft advisory.
var hardFlags = map[string]bool{
	FlagSpamCaps:          true,
	FlagSpamExclamation:   true,
	FlagSpamClickbait:     true,
	FlagSubjectTooLong:    true,
	FlagRewriteOverTarget: true,
}

// IsHardFlag reports whether a single quality flag is blocking.
func IsHardFlag(flag string) bool {
	return hardFlags[flag]
}

// HasHardFlag reports whether any flag in the list is blocking.
func HasHardFlag(flags []string) bool {
	for _, f := range flags {
		if hardFlags[f] {
			return true
		}
	}
	return false
}

var (
	capsWordRe    = regexp.MustCompile(`\b[A-Z]{5,}\b`)
	placeholderRe = regexp.MustCompile(`\{\{[^}]*\}\}`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
)

// Subject-line clickbait tokens, matched on word boundaries.
var clickbaitTokens = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bgratis\b`),
	regexp.MustCompile(`(?i)\bimperdibile\b`),
	regexp.MustCompile(`(?i)\bsolo oggi\b`),
	regexp.MustCompile(`(?i)\burgente\b`),
	regexp.MustCompile(`(?i)\bora\b`),
	regexp.MustCompile(`(?i)\bgratuito\b`),
}

// CheckQuality runs every structural, anti-spam and rewrite-budget
// check against one candidate subject/body pair. Deterministic: same
// inputs always produce the same sorted flag set.
func CheckQuality(subject, body, variantID, seedTemplate string) []string {
	var flags []string
	combined := subject + "\n" + body

	if capsWordRe.MatchString(combined) {
		flags = append(flags, FlagSpamCaps)
	}
	if strings.Count(combined, "!") > 1 {
		flags = append(flags, FlagSpamExclamation)
	}
	for _, tok := range clickbaitTokens {
		if tok.MatchString(subject) {
			flags = append(flags, FlagSpamClickbait)
			break
		}
	}
	if len([]rune(subject)) > SubjectCharLimit {
		flags = append(flags, FlagSubjectTooLong)
	}
	if len([]rune(body)) > bodyWhitespaceThreshold && countParagraphBreaks(body) < 2 {
		flags = append(flags, FlagNeedsWhitespace)
	}

	if seedTemplate != "" {
		ratio := RewriteRatio(body, seedTemplate)
		budget := BudgetFor(variantID)
		switch {
		case ratio < budget.Min-RewriteTolerance:
			flags = append(flags, FlagRewriteUnderTarget)
		case ratio > budget.Max+RewriteTolerance:
			flags = append(flags, FlagRewriteOverTarget)
		}
	}

	sort.Strings(flags)
	return flags
}

// RewriteRatio measures how much of the seed template was rewritten in
// body, as a percentage: 0 means identical, 100 means nothing shared.
// Both texts are normalized (placeholders stripped, lowercased,
// whitespace collapsed) before comparison.
func RewriteRatio(body, seedTemplate string) float64 {
	a := normalizeForRatio(body)
	b := normalizeForRatio(seedTemplate)
	if a == "" && b == "" {
		return 0
	}
	// Autojunk off: with character-level sequences it would discard
	// every frequent letter on texts longer than 200 chars.
	m := difflib.NewMatcherWithJunk(splitChars(a), splitChars(b), false, nil)
	return (1 - m.Ratio()) * 100
}

func normalizeForRatio(text string) string {
	t := placeholderRe.ReplaceAllString(text, " ")
	t = strings.ToLower(t)
	t = spaceRunRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

func countParagraphBreaks(body string) int {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	return strings.Count(normalized, "\n\n")
}
