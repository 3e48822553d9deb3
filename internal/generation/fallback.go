package generation

import (
	"regexp"
	"sort"
	"strings"

	"emailgenius/internal/guardrail"
	"emailgenius/internal/types"
)

// Conservative confidence constants for template-rendered output.
const (
	fallbackConfidenceA     = 0.62
	fallbackConfidenceOther = 0.58
)

// Default seed skeleton used when the parent profile carries none.
const defaultSeedTemplate = `Gentile {{first_name}},

seguiamo aziende come {{company_name}} e notiamo spesso margini di miglioramento su priorita' commerciali e operative. Con il team {{sender_company}} supportiamo realta' simili con un perimetro iniziale molto concreto.

Se utile, possiamo fissare una call conoscitiva di 20-30 minuti per valutare priorita' e possibili quick win: {{booking_link}}

Cordiali saluti
{{sender_name}}
{{sender_company}}
{{sender_phone}}`

var (
	informalYouRe   = regexp.MustCompile(`\b[Tt]i\b`)
	informalTuRe    = regexp.MustCompile(`\b[Tt]u\b`)
	informalHelloRe = regexp.MustCompile(`\bCiao\b`)
)

// FallbackVariants renders the requested variant ids from the seed
// template alone: no network, fully deterministic. Variant A is the
// verbatim render, B shifts to formal pronouns, C frames the note as
// based on public information. Every variant passes through Claim Guard
// and Quality Gate so fallback output obeys the same contract as
// service output.
func FallbackVariants(parent types.ParentProfile, company types.LeadCompany, contact *types.LeadContact, dossier types.EnrichmentDossier, variantIDs []string) ([]types.DraftEmailVariant, string, []string) {
	rendered := RenderSeedTemplate(seedOrDefault(parent), parent, company, contact)
	companyName := company.CompanyName
	if companyName == "" {
		companyName = "la vostra azienda"
	}

	cta := parent.CTAPolicy
	if cta == "" {
		cta = "call conoscitiva 20-30 minuti"
	}

	var variants []types.DraftEmailVariant
	var allFlags []string
	for _, id := range variantIDs {
		var subject, body string
		switch strings.ToUpper(id) {
		case "B":
			subject = "Idea concreta per " + companyName
			body = formalizePronouns(rendered)
		case "C":
			subject = "Proposta di allineamento: " + companyName
			body = "Le scrivo sulla base delle informazioni pubbliche su " + companyName + ".\n\n" + rendered
		default:
			subject = "Confronto operativo per " + companyName
			body = rendered
		}

		cleaned, guardFlags := guardrail.ApplyClaimGuard(subject+"\n\n"+body, parent.NoGoClaims)
		if idx := strings.Index(cleaned, "\n\n"); idx >= 0 {
			subject = strings.TrimSpace(cleaned[:idx])
			body = strings.TrimSpace(cleaned[idx+2:])
		}

		flags := append([]string{}, guardFlags...)
		flags = append(flags, guardrail.CheckQuality(subject, body, id, parent.OutreachSeedTemplate)...)
		sort.Strings(flags)

		confidence := fallbackConfidenceOther
		if strings.ToUpper(id) == "A" {
			confidence = fallbackConfidenceA
		}

		variants = append(variants, types.DraftEmailVariant{
			Variant:    strings.ToUpper(id),
			Subject:    subject,
			Body:       body,
			CTA:        cta,
			RiskFlags:  flags,
			Confidence: confidence,
		})
		allFlags = append(allFlags, flags...)
	}

	recommended := "A"
	if len(variants) > 0 {
		recommended = variants[0].Variant
	}
	return variants, recommended, dedupeSorted(allFlags)
}

// RenderSeedTemplate substitutes the fixed placeholder tokens into a
// seed template.
func RenderSeedTemplate(template string, parent types.ParentProfile, company types.LeadCompany, contact *types.LeadContact) string {
	firstName := "Team"
	if contact != nil && contact.FullName != "" {
		parts := strings.Fields(contact.FullName)
		if len(parts) > 0 {
			firstName = parts[0]
		}
	}

	replacer := strings.NewReplacer(
		"{{first_name}}", firstName,
		"{{company_name}}", company.CompanyName,
		"{{sender_name}}", parent.SenderName,
		"{{sender_company}}", parent.SenderCompany,
		"{{sender_phone}}", parent.SenderPhone,
		"{{booking_link}}", parent.BookingLink,
	)
	return strings.TrimSpace(replacer.Replace(template))
}

func seedOrDefault(parent types.ParentProfile) string {
	if strings.TrimSpace(parent.OutreachSeedTemplate) != "" {
		return parent.OutreachSeedTemplate
	}
	return defaultSeedTemplate
}

// formalizePronouns shifts informal address to the formal register.
// Coarse on purpose: the fallback only has to read plausibly, the
// quality gate still vets the result.
func formalizePronouns(body string) string {
	out := informalHelloRe.ReplaceAllString(body, "Buongiorno")
	out = informalYouRe.ReplaceAllString(out, "Le")
	out = informalTuRe.ReplaceAllString(out, "Lei")
	out = strings.Replace(out, "Gentile", "Buongiorno", 1)
	return out
}

func dedupeSorted(flags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
