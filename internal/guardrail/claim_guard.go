// Package guardrail implements the brand-safety claim guard and the
// structural/anti-spam/rewrite-budget quality gate. Both are pure
// functions over text; they hold no state and touch no I/O.
package guardrail

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RedactionMarker replaces caller-forbidden phrases in cleaned text.
const RedactionMarker = "[claim-rimosso]"

// forbiddenPattern is one fixed claim family checked on every text.
type forbiddenPattern struct {
	name string
	re   *regexp.Regexp
}

// Fixed families of risky absolute claims, matched case-insensitively.
// Detection only; the text is not rewritten for these.
var forbiddenPatterns = []forbiddenPattern{
	{"claim_guaranteed", regexp.MustCompile(`(?i)\b(garantit[oaie]|garanzia totale)\b`)},
	{"claim_absolute", regexp.MustCompile(`(?i)\b100\s*%|\b(sempre|mai)\b`)},
	{"claim_zero_risk", regexp.MustCompile(`(?i)\b(senza rischi|rischio zero)\b`)},
	{"claim_unique", regexp.MustCompile(`(?i)\b(unic[oaie] sul mercato)\b`)},
	{"claim_immediate", regexp.MustCompile(`(?i)\b(risultati immediati|subito)\b`)},
}

// Soft rewrites applied unconditionally; idempotent because every
// replacement text no longer matches its own pattern.
var softRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bgarantiamo\b`), "puntiamo a"},
	{regexp.MustCompile(`(?i)\bgarantito\b`), "stimato"},
	{regexp.MustCompile(`(?i)\bsenza rischi\b`), "con rischio controllato"},
}

// ApplyClaimGuard scans text for forbidden claim families and caller
// no-go phrases. Fixed families only flag; no-go phrases are flagged as
// "no_go:<phrase>" and replaced with the redaction marker. Soft
// normalization of risky absolute phrasing runs last. Returned flags
// are sorted and deduplicated.
func ApplyClaimGuard(text string, noGoPhrases []string) (string, []string) {
	cleaned := text
	seen := make(map[string]bool)
	var flags []string

	for _, p := range forbiddenPatterns {
		if p.re.MatchString(cleaned) && !seen[p.name] {
			seen[p.name] = true
			flags = append(flags, p.name)
		}
	}

	for _, phrase := range noGoPhrases {
		token := strings.TrimSpace(phrase)
		if token == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(token))
		if err != nil {
			continue
		}
		if re.MatchString(cleaned) {
			flag := fmt.Sprintf("no_go:%s", token)
			if !seen[flag] {
				seen[flag] = true
				flags = append(flags, flag)
			}
			cleaned = re.ReplaceAllString(cleaned, RedactionMarker)
		}
	}

	for _, sr := range softRewrites {
		cleaned = sr.re.ReplaceAllString(cleaned, sr.repl)
	}

	sort.Strings(flags)
	return cleaned, flags
}
