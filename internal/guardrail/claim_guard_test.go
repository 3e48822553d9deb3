package guardrail

import (
	"strings"
	"testing"
)

func TestApplyClaimGuardEmptyInput(t *testing.T) {
	cleaned, flags := ApplyClaimGuard("", nil)
	if cleaned != "" {
		t.Errorf("expected empty output, got %q", cleaned)
	}
	if len(flags) != 0 {
		t.Errorf("expected no flags, got %v", flags)
	}
}

func TestApplyClaimGuardForbiddenFamilies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"guaranteed masculine", "risultato garantito per voi", "claim_guaranteed"},
		{"guaranteed feminine", "resa garantita al cliente", "claim_guaranteed"},
		{"total guarantee", "offriamo garanzia totale", "claim_guaranteed"},
		{"absolute percent", "efficacia al 100% dimostrata", "claim_absolute"},
		{"absolute always", "funziona sempre", "claim_absolute"},
		{"zero risk", "investimento senza rischi", "claim_zero_risk"},
		{"unique", "siamo unici sul mercato", "claim_unique"},
		{"immediate", "risultati immediati dal primo giorno", "claim_immediate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, flags := ApplyClaimGuard(tt.text, nil)
			if !containsFlag(flags, tt.want) {
				t.Errorf("ApplyClaimGuard(%q) flags = %v, want %s", tt.text, flags, tt.want)
			}
		})
	}
}

func TestApplyClaimGuardFamilyFlaggedOnce(t *testing.T) {
	_, flags := ApplyClaimGuard("garantito e garantita e garanzia totale", nil)
	count := 0
	for _, f := range flags {
		if f == "claim_guaranteed" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected claim_guaranteed exactly once, got flags %v", flags)
	}
}

func TestApplyClaimGuardNoGoPhrases(t *testing.T) {
	text := "Siamo il leader assoluto nel settore logistica."
	cleaned, flags := ApplyClaimGuard(text, []string{"leader assoluto"})

	if !containsFlag(flags, "no_go:leader assoluto") {
		t.Errorf("missing no_go flag, got %v", flags)
	}
	if strings.Contains(strings.ToLower(cleaned), "leader assoluto") {
		t.Errorf("phrase not removed: %q", cleaned)
	}
	if !strings.Contains(cleaned, RedactionMarker) {
		t.Errorf("redaction marker missing: %q", cleaned)
	}
}

func TestApplyClaimGuardNoGoCaseInsensitive(t *testing.T) {
	cleaned, flags := ApplyClaimGuard("LEADER ASSOLUTO del mercato", []string{"leader assoluto"})
	if !containsFlag(flags, "no_go:leader assoluto") {
		t.Errorf("case-insensitive match failed, flags %v", flags)
	}
	if !strings.Contains(cleaned, RedactionMarker) {
		t.Errorf("redaction marker missing: %q", cleaned)
	}
}

func TestApplyClaimGuardBlankNoGoIgnored(t *testing.T) {
	_, flags := ApplyClaimGuard("testo qualunque", []string{"", "   "})
	if len(flags) != 0 {
		t.Errorf("blank phrases must be ignored, got %v", flags)
	}
}

func TestApplyClaimGuardSoftRewrites(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"garantiamo la consegna", "puntiamo a la consegna"},
		{"un risparmio garantito", "un risparmio stimato"},
		{"un percorso senza rischi", "un percorso con rischio controllato"},
	}
	for _, tt := range tests {
		cleaned, _ := ApplyClaimGuard(tt.in, nil)
		if cleaned != tt.want {
			t.Errorf("ApplyClaimGuard(%q) = %q, want %q", tt.in, cleaned, tt.want)
		}
	}
}

func TestApplyClaimGuardIdempotentText(t *testing.T) {
	text := "Garantiamo risultati immediati, senza rischi, per il leader assoluto."
	once, _ := ApplyClaimGuard(text, []string{"leader assoluto"})
	twice, _ := ApplyClaimGuard(once, []string{"leader assoluto"})
	if once != twice {
		t.Errorf("second pass changed text:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestApplyClaimGuardFlagsSortedDeduped(t *testing.T) {
	_, flags := ApplyClaimGuard("sempre garantito, mai senza rischi, subito", nil)
	for i := 1; i < len(flags); i++ {
		if flags[i-1] >= flags[i] {
			t.Fatalf("flags not sorted/deduped: %v", flags)
		}
	}
}

func containsFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
