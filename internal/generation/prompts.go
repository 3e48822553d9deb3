package generation

import (
	"encoding/json"
	"fmt"

	"emailgenius/internal/guardrail"
	"emailgenius/internal/types"
)

const campaignSystemPrompt = "Sei un copywriter B2B senior. Genera email outbound in italiano, stile formale-consulenziale. " +
	"Niente promesse assolute, niente claim non verificabili, nessun fatto inventato. " +
	"Output SOLO JSON valido con chiavi: variants, recommended_variant, notes."

const repairSystemPrompt = "Sei un revisore di email B2B. Correggi oggetto e corpo rispettando i vincoli indicati. " +
	"Output SOLO JSON valido con chiavi: subject, body."

type variantConstraint struct {
	Variant           string  `json:"variant"`
	RewriteMinPercent float64 `json:"rewrite_min_percent"`
	RewriteMaxPercent float64 `json:"rewrite_max_percent"`
}

type promptConstraints struct {
	Language          string              `json:"language"`
	Tone              string              `json:"tone"`
	VariantsRequired  []string            `json:"variants_required"`
	RewriteBudgets    []variantConstraint `json:"rewrite_budgets"`
	CTA               string              `json:"cta"`
	SubjectMaxChars   int                 `json:"subject_max_chars"`
	MaxExclamations   int                 `json:"max_exclamations"`
	NoAllCapsWords    bool                `json:"no_all_caps_words"`
	NoClickbait       bool                `json:"no_clickbait_subject"`
	ParagraphBreaks   bool                `json:"paragraph_breaks_required"`
	NoInventedFacts   bool                `json:"no_invented_facts"`
	NoAbsoluteClaims  bool                `json:"no_absolute_claims"`
	NoAIDisclosure    bool                `json:"no_ai_disclosure"`
}

type campaignPayload struct {
	ParentProfile      types.ParentProfile     `json:"parent_profile"`
	TargetCompany      types.LeadCompany       `json:"target_company"`
	TargetContact      *types.LeadContact      `json:"target_contact"`
	Dossier            types.EnrichmentDossier `json:"dossier"`
	MarketingKnowledge []string                `json:"retrieved_marketing_knowledge"`
	SeedTemplate       string                  `json:"seed_template"`
	Constraints        promptConstraints       `json:"constraints"`
}

// BuildCampaignPrompt assembles the structured generation request. The
// whole payload goes as one JSON user message; the model answers with a
// JSON object.
func BuildCampaignPrompt(parent types.ParentProfile, company types.LeadCompany, contact *types.LeadContact, dossier types.EnrichmentDossier, snippets []string, variantIDs []string) (string, string, error) {
	budgets := make([]variantConstraint, 0, len(variantIDs))
	for _, id := range variantIDs {
		b := guardrail.BudgetFor(id)
		budgets = append(budgets, variantConstraint{
			Variant:           id,
			RewriteMinPercent: b.Min,
			RewriteMaxPercent: b.Max,
		})
	}

	cta := parent.CTAPolicy
	if cta == "" {
		cta = "call conoscitiva 20-30 minuti"
	}

	payload := campaignPayload{
		ParentProfile:      parent,
		TargetCompany:      company,
		TargetContact:      contact,
		Dossier:            dossier,
		MarketingKnowledge: snippets,
		SeedTemplate:       parent.OutreachSeedTemplate,
		Constraints: promptConstraints{
			Language:         "italiano",
			Tone:             "formale-consulenziale",
			VariantsRequired: variantIDs,
			RewriteBudgets:   budgets,
			CTA:              cta,
			SubjectMaxChars:  guardrail.SubjectCharLimit,
			MaxExclamations:  1,
			NoAllCapsWords:   true,
			NoClickbait:      true,
			ParagraphBreaks:  true,
			NoInventedFacts:  true,
			NoAbsoluteClaims: true,
			NoAIDisclosure:   true,
		},
	}

	userPrompt, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal campaign payload: %w", err)
	}
	return campaignSystemPrompt, string(userPrompt), nil
}

type repairPayload struct {
	SeedTemplate      string   `json:"seed_template"`
	Subject           string   `json:"subject"`
	Body              string   `json:"body"`
	Variant           string   `json:"variant"`
	RewriteMinPercent float64  `json:"rewrite_min_percent"`
	RewriteMaxPercent float64  `json:"rewrite_max_percent"`
	FailedChecks      []string `json:"failed_checks"`
}

// BuildRepairPrompt assembles the one-shot repair sub-call request for
// a subject/body pair that failed the quality gate.
func BuildRepairPrompt(seedTemplate, subject, body, variantID string, flags []string) (string, string, error) {
	b := guardrail.BudgetFor(variantID)
	payload := repairPayload{
		SeedTemplate:      seedTemplate,
		Subject:           subject,
		Body:              body,
		Variant:           variantID,
		RewriteMinPercent: b.Min,
		RewriteMaxPercent: b.Max,
		FailedChecks:      flags,
	}

	userPrompt, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal repair payload: %w", err)
	}
	return repairSystemPrompt, string(userPrompt), nil
}
