package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"emailgenius/internal/guardrail"
	"emailgenius/internal/logging"
	"emailgenius/internal/types"
)

// Variant and row flags produced by the gateway and selector.
const (
	FlagQualityRepaired = "quality_repaired"
	FlagFailedCopyGuard = "failed_copy_guard"
	FlagTemplateOnly    = "template_only_no_website"
	FlagLimitedSources  = "limited_sources"
)

// Generation policies.
const (
	PolicyStrict   = "strict"
	PolicyFallback = "fallback"
)

// Variant modes.
const (
	VariantModeAB  = "ab"
	VariantModeABC = "abc"
)

// Hard cap applied while cleaning subjects. Above the quality gate's
// limit on purpose, so subject_too_long can still fire and trigger a
// repair instead of silent truncation.
const subjectCleanCap = 200

// Request carries everything one gateway invocation needs. Immutable
// once built; per-call mutable state lives inside Generate.
type Request struct {
	Parent      types.ParentProfile
	Company     types.LeadCompany
	Contact     *types.LeadContact
	Dossier     types.EnrichmentDossier
	Snippets    []string
	VariantMode string
	Policy      string
	MaxRetries  int
	BackoffBase time.Duration
}

// Result is the outcome of one gateway invocation.
type Result struct {
	Variants           []types.DraftEmailVariant
	RecommendedVariant string
	GlobalFlags        []string
	UsedFallback       bool
}

// Gateway wraps the generative service call with JSON-contract parsing,
// claim guard, quality gate, a one-shot repair sub-call, retry with
// exponential backoff, and fatal/transient error classification.
type Gateway struct {
	client Client
	sleep  func(time.Duration)
}

// NewGateway creates a gateway over the given client.
func NewGateway(client Client) *Gateway {
	return &Gateway{client: client, sleep: time.Sleep}
}

// NewGatewayWithSleep creates a gateway with an injectable sleep, so
// retry tests run instantly.
func NewGatewayWithSleep(client Client, sleep func(time.Duration)) *Gateway {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Gateway{client: client, sleep: sleep}
}

// VariantIDsFor maps a variant mode to the requested variant ids.
func VariantIDsFor(mode string) []string {
	if strings.ToLower(mode) == VariantModeABC {
		return []string{"A", "B", "C"}
	}
	return []string{"A", "B"}
}

// Generate runs the full state machine:
// CALL, PARSE, PER_VARIANT_CLEAN, QUALITY_CHECK, optional REPAIR,
// ACCEPT, inside an outer retry loop. Fatal errors abort immediately;
// transient errors retry up to MaxRetries with pure exponential
// backoff, then either propagate (policy strict) or resolve to the
// deterministic fallback rendering (policy fallback).
func (g *Gateway) Generate(ctx context.Context, req Request) (*Result, error) {
	ids := VariantIDsFor(req.VariantMode)

	if g.client == nil || !g.client.Configured() {
		if req.Policy == PolicyStrict {
			return nil, &ValidationError{Msg: "generative service not configured and llm policy is strict"}
		}
		logging.Generation("No generative credential, rendering fallback variants for %s", req.Company.CompanyName)
		return g.fallbackResult(req, ids), nil
	}

	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		result, err := g.attempt(ctx, req, ids)
		if err == nil {
			return result, nil
		}

		err = ClassifyError(err)
		if IsFatal(err) {
			logging.GenerationError("Fatal generation error for %s: %v", req.Company.CompanyName, err)
			return nil, err
		}
		if attempt >= maxRetries {
			logging.GenerationWarn("Generation exhausted after %d attempts for %s: %v", attempt+1, req.Company.CompanyName, err)
			if req.Policy != PolicyStrict {
				return g.fallbackResult(req, ids), nil
			}
			return nil, err
		}

		// A cancelled run never waits out a backoff.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		delay := req.BackoffBase * time.Duration(1<<uint(attempt))
		logging.GenerationDebug("Transient error on attempt %d for %s, retrying in %v: %v", attempt, req.Company.CompanyName, delay, err)
		g.sleep(delay)
	}
}

func (g *Gateway) fallbackResult(req Request, ids []string) *Result {
	variants, recommended, flags := FallbackVariants(req.Parent, req.Company, req.Contact, req.Dossier, ids)
	return &Result{
		Variants:           variants,
		RecommendedVariant: recommended,
		GlobalFlags:        flags,
		UsedFallback:       true,
	}
}

// attempt runs one pass of CALL through ACCEPT.
func (g *Gateway) attempt(ctx context.Context, req Request, ids []string) (*Result, error) {
	system, user, err := BuildCampaignPrompt(req.Parent, req.Company, req.Contact, req.Dossier, req.Snippets, ids)
	if err != nil {
		return nil, err
	}

	raw, err := g.client.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	rawVariants, recommended, err := parseServiceResponse(raw, ids)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	var variants []types.DraftEmailVariant
	var globalFlags []string
	for _, rv := range rawVariants {
		if !requested[rv.Variant] {
			logging.GenerationDebug("Dropping unrequested variant %q from response", rv.Variant)
			continue
		}
		variant, err := g.processVariant(ctx, rv, req.Parent)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
		globalFlags = append(globalFlags, variant.RiskFlags...)
	}

	variants = ensureCompleteness(variants, req, ids)
	recommended = normalizeRecommended(recommended, variants)

	return &Result{
		Variants:           variants,
		RecommendedVariant: recommended,
		GlobalFlags:        dedupeSorted(globalFlags),
	}, nil
}

// processVariant cleans one raw variant, vets it through the claim
// guard and quality gate, and runs the single repair round when the
// gate objects.
func (g *Gateway) processVariant(ctx context.Context, rv rawVariant, parent types.ParentProfile) (types.DraftEmailVariant, error) {
	subject := cleanSubject(rv.Subject)
	if subject == "" {
		subject = "Proposta di confronto operativo"
	}
	body := cleanBody(rv.Body)

	cleaned, guardFlags := guardrail.ApplyClaimGuard(subject+"\n\n"+body, parent.NoGoClaims)
	if idx := strings.Index(cleaned, "\n\n"); idx >= 0 {
		if s := strings.TrimSpace(cleaned[:idx]); s != "" {
			subject = s
		}
		if b := strings.TrimSpace(cleaned[idx+2:]); b != "" {
			body = b
		}
	}

	cta := strings.TrimSpace(rv.CTA)
	if cta == "" {
		cta = parent.CTAPolicy
	}

	variant := types.DraftEmailVariant{
		Variant:    rv.Variant,
		Subject:    subject,
		Body:       body,
		CTA:        cta,
		Confidence: clampConfidence(rv.Confidence),
	}

	seed := parent.OutreachSeedTemplate
	qualityFlags := guardrail.CheckQuality(subject, body, rv.Variant, seed)
	if len(qualityFlags) == 0 {
		variant.RiskFlags = dedupeSorted(guardFlags)
		return variant, nil
	}

	repairedSubject, repairedBody, repairErr := g.repair(ctx, seed, subject, body, rv.Variant, qualityFlags)
	if repairErr != nil {
		if IsFatal(ClassifyError(repairErr)) {
			return types.DraftEmailVariant{}, repairErr
		}
		// Repair unavailable: keep the original text, blocked if it
		// carried hard flags.
		flags := append([]string{}, guardFlags...)
		flags = append(flags, qualityFlags...)
		if guardrail.HasHardFlag(qualityFlags) {
			flags = append(flags, FlagFailedCopyGuard)
		}
		variant.RiskFlags = dedupeSorted(flags)
		return variant, nil
	}

	residual := guardrail.CheckQuality(repairedSubject, repairedBody, rv.Variant, seed)
	flags := append([]string{}, guardFlags...)
	switch {
	case len(residual) == 0:
		variant.Subject = repairedSubject
		variant.Body = repairedBody
		flags = append(flags, FlagQualityRepaired)
	case guardrail.HasHardFlag(residual):
		// Repair did not clear the hard problems: keep the original
		// text and block the variant.
		flags = append(flags, residual...)
		flags = append(flags, FlagFailedCopyGuard)
	default:
		// Soft-only residue never blocks: the repaired text is still
		// the better one.
		variant.Subject = repairedSubject
		variant.Body = repairedBody
		flags = append(flags, residual...)
		flags = append(flags, FlagQualityRepaired)
	}
	variant.RiskFlags = dedupeSorted(flags)
	return variant, nil
}

// repair issues the one-shot repair sub-call and decodes its
// {subject, body} answer.
func (g *Gateway) repair(ctx context.Context, seed, subject, body, variantID string, flags []string) (string, string, error) {
	system, user, err := BuildRepairPrompt(seed, subject, body, variantID, flags)
	if err != nil {
		return "", "", err
	}

	raw, err := g.client.Complete(ctx, system, user)
	if err != nil {
		return "", "", err
	}

	var repaired struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := unmarshalLoose(raw, &repaired); err != nil {
		return "", "", fmt.Errorf("repair response malformed: %w", err)
	}

	repairedSubject := cleanSubject(repaired.Subject)
	repairedBody := cleanBody(repaired.Body)
	if repairedSubject == "" || repairedBody == "" {
		return "", "", fmt.Errorf("repair response missing subject or body")
	}
	return repairedSubject, repairedBody, nil
}

// ensureCompleteness fills missing requested ids from the fallback
// renderer, sorts by id and truncates to the requested count.
func ensureCompleteness(variants []types.DraftEmailVariant, req Request, ids []string) []types.DraftEmailVariant {
	present := make(map[string]bool, len(variants))
	for _, v := range variants {
		present[v.Variant] = true
	}

	var missing []string
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		filled, _, _ := FallbackVariants(req.Parent, req.Company, req.Contact, req.Dossier, missing)
		variants = append(variants, filled...)
	}

	sort.Slice(variants, func(i, j int) bool {
		return variants[i].Variant < variants[j].Variant
	})
	if len(variants) > len(ids) {
		variants = variants[:len(ids)]
	}
	return variants
}

// normalizeRecommended accepts the service's recommendation only when
// it names a produced variant; otherwise the first produced id wins.
func normalizeRecommended(recommended string, variants []types.DraftEmailVariant) string {
	recommended = strings.ToUpper(strings.TrimSpace(recommended))
	for _, v := range variants {
		if v.Variant == recommended {
			return recommended
		}
	}
	if len(variants) > 0 {
		return variants[0].Variant
	}
	return "A"
}

var (
	lineBreakRe  = regexp.MustCompile(`\s+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	trailingWSRe = regexp.MustCompile(`[ \t]+\n`)
)

// cleanSubject collapses a subject to one whitespace-normalized line
// with a hard length cap.
func cleanSubject(subject string) string {
	s := lineBreakRe.ReplaceAllString(subject, " ")
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "Oggetto:"))
	runes := []rune(s)
	if len(runes) > subjectCleanCap {
		s = string(runes[:subjectCleanCap])
	}
	return s
}

// cleanBody normalizes line endings, collapses blank-line runs and
// trims surrounding whitespace.
func cleanBody(body string) string {
	b := strings.ReplaceAll(body, "\r\n", "\n")
	b = strings.ReplaceAll(b, "\r", "\n")
	b = trailingWSRe.ReplaceAllString(b, "\n")
	b = blankRunRe.ReplaceAllString(b, "\n\n")
	return strings.TrimSpace(b)
}

func clampConfidence(v float64) float64 {
	if v == 0 {
		return 0.65
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// unmarshalLoose tolerates a JSON document wrapped in markdown fences.
func unmarshalLoose(raw string, out interface{}) error {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(text)), out)
}
