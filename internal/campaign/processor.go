package campaign

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"emailgenius/internal/enrichment"
	"emailgenius/internal/generation"
	"emailgenius/internal/knowledge"
	"emailgenius/internal/leads"
	"emailgenius/internal/types"
)

const (
	errorWarningLimit = 240
	retrievalTopK     = 6
)

// ErrCodeRetryExhausted marks a row whose generation kept failing after
// every retry.
const ErrCodeRetryExhausted = "FAILED_LLM_RETRY_EXHAUSTED"

// itemInput is one unit of generation work: a single lead row in row
// mode, or every row of a company group in company mode.
type itemInput struct {
	RowIndex   int
	CompanyKey string
	Rows       []leads.PreflightRow
	RawRow     map[string]string
}

// itemOutcome is what processing one item produces. A fatal outcome
// aborts the whole run; a failed one only marks its own row.
type itemOutcome struct {
	RowIndex   int
	ExportRow  map[string]string
	Result     *types.CampaignCompanyResult
	Billable   bool
	Warning    bool
	Failed     bool
	Fatal      bool
	ErrMessage string
}

// processor holds the per-run collaborators shared by every item.
type processor struct {
	campaignID     string
	parentSlug     string
	parent         types.ParentProfile
	gateway        *generation.Gateway
	enricher       *enrichment.Builder
	ingestor       *knowledge.Ingestor
	enrichmentMode string
	variantMode    string
	policy         string
	outputSchema   string
	ragEnabled     bool
	maxRetries     int
	backoffBase    time.Duration
}

// processItem runs the full per-item pipeline: company assembly,
// enrichment, knowledge retrieval, generation and export-row building.
func (p *processor) processItem(ctx context.Context, item itemInput) itemOutcome {
	company, contacts := leads.BuildCompanyAndContacts(item.CompanyKey, item.Rows)
	primary := leads.SelectPrimaryContact(contacts)

	// Billing follows the input CSV: a website discovered later by
	// enrichment does not change what the pre-run estimate counted.
	billable := company.Website != ""

	var dossier types.EnrichmentDossier
	if p.enrichmentMode == "minimal" || p.enricher == nil {
		dossier = minimalDossier(company.CompanyName)
	} else {
		var discovered string
		dossier, discovered = p.enricher.BuildDossier(ctx, company, primary)
		if discovered != "" && company.Website == "" {
			company.Website = discovered
		}
	}

	var snippets []string
	if p.ragEnabled && p.ingestor != nil {
		query := buildRetrievalQuery(company, dossier)
		snippets = p.ingestor.RetrieveSnippets(ctx, p.parentSlug, query, retrievalTopK)
	}

	result, err := p.gateway.Generate(ctx, generation.Request{
		Parent:      p.parent,
		Company:     company,
		Contact:     primary,
		Dossier:     dossier,
		Snippets:    snippets,
		VariantMode: p.variantMode,
		Policy:      p.policy,
		MaxRetries:  p.maxRetries,
		BackoffBase: p.backoffBase,
	})
	if err != nil {
		return p.errorOutcome(item, err)
	}

	// Row flags are the selector's: one variant's failure never
	// poisons an otherwise-OK row.
	selectedID, status, rowFlags := generation.SelectVariant(
		result.Variants, result.RecommendedVariant, len(dossier.Sources),
	)
	if company.Website == "" {
		rowFlags = appendFlag(rowFlags, generation.FlagTemplateOnly)
	}

	warning := ""
	errorCode := ""
	if status == types.StatusFailedCopyGuard {
		warning = "Copy guard non superato dopo repair"
		errorCode = types.StatusFailedCopyGuard
	} else {
		warning = discardedVariantWarning(result.Variants, selectedID)
	}

	companyResult := types.CampaignCompanyResult{
		CampaignID:         p.campaignID,
		ParentSlug:         p.parentSlug,
		Company:            company,
		Contact:            primary,
		Dossier:            dossier,
		Variants:           result.Variants,
		RecommendedVariant: result.RecommendedVariant,
		SelectedVariant:    selectedID,
		GenerationStatus:   status,
		GenerationWarning:  warning,
		ErrorCode:          errorCode,
		Approval:           types.ApprovalRecord{Status: "PENDING", UpdatedAt: types.UTCNowISO()},
		RiskFlags:          rowFlags,
	}

	exportRow := companyResultToRow(companyResult, item.RawRow, p.outputSchema)
	return itemOutcome{
		RowIndex:  item.RowIndex,
		ExportRow: exportRow,
		Result:    &companyResult,
		Billable:  billable,
		Warning:   len(rowFlags) > 0 || warning != "",
		Failed:    status != types.StatusOK,
	}
}

// discardedVariantWarning names the sibling variants the selector
// dropped for failing the copy guard, so a passing row still tells the
// reviewer what was lost.
func discardedVariantWarning(variants []types.DraftEmailVariant, selectedID string) string {
	var failed []string
	for _, v := range variants {
		if v.Variant == selectedID {
			continue
		}
		if hasFlagString(v.RiskFlags, generation.FlagFailedCopyGuard) {
			failed = append(failed, v.Variant)
		}
	}
	switch len(failed) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Variante %s scartata: copy guard non superato", failed[0])
	default:
		return fmt.Sprintf("Varianti %s scartate: copy guard non superato", strings.Join(failed, ", "))
	}
}

// errorOutcome classifies a generation failure: fatal errors abort the
// run under strict policy, everything else becomes an ERROR row.
func (p *processor) errorOutcome(item itemInput, err error) itemOutcome {
	var validation *generation.ValidationError
	if p.policy == generation.PolicyStrict && (generation.IsFatal(err) || errors.As(err, &validation)) {
		return itemOutcome{
			RowIndex:   item.RowIndex,
			Warning:    true,
			Failed:     true,
			Fatal:      true,
			ErrMessage: err.Error(),
		}
	}

	return itemOutcome{
		RowIndex:   item.RowIndex,
		ExportRow:  errorRow(p.campaignID, p.parentSlug, item.RawRow, ErrCodeRetryExhausted, err.Error(), p.outputSchema),
		Warning:    true,
		Failed:     true,
		ErrMessage: err.Error(),
	}
}

// minimalDossier is the CSV-only evidence bundle used when web
// enrichment is disabled.
func minimalDossier(companyName string) types.EnrichmentDossier {
	return types.EnrichmentDossier{
		SiteSummary:           fmt.Sprintf("Dossier minimale generato da CSV per %s.", companyName),
		PainHypotheses:        []string{"allineamento priorita commerciali e execution operativa"},
		OpportunityHypotheses: []string{"definire quick win con impatto commerciale tracciabile"},
		Evidence:              []string{"Fonte primaria: CSV lead"},
		Sources:               []string{"csv://lead-row"},
	}
}

// buildRetrievalQuery compacts the company profile and the dossier's
// top hypotheses into one knowledge-base query.
func buildRetrievalQuery(company types.LeadCompany, dossier types.EnrichmentDossier) string {
	hints := []string{
		company.CompanyName,
		company.Industry,
		company.Keywords,
		strings.Join(headOf(dossier.PainHypotheses, 2), " "),
		strings.Join(headOf(dossier.OpportunityHypotheses, 2), " "),
	}
	var parts []string
	for _, hint := range hints {
		if hint != "" {
			parts = append(parts, hint)
		}
	}
	return strings.Join(parts, " | ")
}

func headOf(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func appendFlag(flags []string, flag string) []string {
	return dedupeSortedFlags(append(flags, flag))
}

// companyResultToRow merges the raw input row with the approval-sheet
// columns for one generated result.
func companyResultToRow(result types.CampaignCompanyResult, rawRow map[string]string, outputSchema string) map[string]string {
	byName := variantsByName(result.Variants)
	final := byName[result.SelectedVariant]

	row := copyRow(rawRow)
	row["campaign_id"] = result.CampaignID
	row["parent_slug"] = result.ParentSlug
	row["company_name"] = result.Company.CompanyName
	if result.Contact != nil {
		row["contact_name"] = result.Contact.FullName
		row["contact_title"] = result.Contact.Title
		row["contact_email"] = result.Contact.Email
	} else {
		row["contact_name"] = ""
		row["contact_title"] = ""
		row["contact_email"] = ""
	}
	row["variant_a_subject"] = byName["A"].Subject
	row["variant_a_body"] = byName["A"].Body
	row["variant_b_subject"] = byName["B"].Subject
	row["variant_b_body"] = byName["B"].Body
	row["recommended_variant"] = result.RecommendedVariant
	row["final_subject"] = final.Subject
	row["final_body"] = final.Body
	row["selected_variant"] = result.SelectedVariant
	row["generation_status"] = result.GenerationStatus
	row["generation_warning"] = result.GenerationWarning
	row["error_code"] = result.ErrorCode
	row["evidence_summary"] = joinLimited(result.Dossier.Evidence, 5)
	row["risk_flags"] = strings.Join(result.RiskFlags, "; ")
	row["status"] = result.Approval.Status
	row["reviewer_notes"] = result.Approval.Notes
	row["approved_variant"] = result.Approval.ApprovedVariant
	row["updated_at"] = result.Approval.UpdatedAt
	if strings.ToLower(outputSchema) == "abc" {
		row["variant_c_subject"] = byName["C"].Subject
		row["variant_c_body"] = byName["C"].Body
	}
	return row
}

// errorRow builds the export row for an item whose generation failed.
func errorRow(campaignID, parentSlug string, rawRow map[string]string, errorCode, warningMessage, outputSchema string) map[string]string {
	row := baseRawRow(campaignID, parentSlug, rawRow)
	row["generation_status"] = types.StatusError
	row["generation_warning"] = truncateString(warningMessage, errorWarningLimit)
	row["error_code"] = errorCode
	if strings.ToLower(outputSchema) == "abc" {
		if _, ok := row["variant_c_subject"]; !ok {
			row["variant_c_subject"] = ""
		}
		if _, ok := row["variant_c_body"]; !ok {
			row["variant_c_body"] = ""
		}
	}
	return row
}

// skippedValidationRow builds the export row for an input row that
// failed preflight. It is exported untouched so the reviewer sees what
// arrived and why it was skipped.
func skippedValidationRow(campaignID, parentSlug string, rawRow map[string]string, missingFields []string) map[string]string {
	row := baseRawRow(campaignID, parentSlug, rawRow)
	row["generation_status"] = types.StatusSkippedValidation
	row["generation_warning"] = "Missing required fields: " + strings.Join(missingFields, ", ")
	row["error_code"] = types.StatusSkippedValidation
	return row
}

// baseRawRow is the shared skeleton of error and skipped rows: the raw
// input columns plus empty generation columns and contact identity
// pulled straight from the CSV.
func baseRawRow(campaignID, parentSlug string, rawRow map[string]string) map[string]string {
	companyName := firstNonEmpty(rawRow["companyName"], rawRow["Company Name"])
	title := firstNonEmpty(rawRow["jobTitle"], rawRow["Title"])
	contactName := rawRow["Full Name"]
	if contactName == "" {
		contactName = strings.TrimSpace(rawRow["First Name"] + " " + rawRow["Last Name"])
	}

	row := copyRow(rawRow)
	row["campaign_id"] = campaignID
	row["parent_slug"] = parentSlug
	row["company_name"] = companyName
	row["contact_name"] = contactName
	row["contact_title"] = title
	row["contact_email"] = firstNonEmpty(rawRow["Email"], rawRow["email"])
	row["recommended_variant"] = ""
	row["final_subject"] = ""
	row["final_body"] = ""
	row["selected_variant"] = ""
	row["status"] = "PENDING"
	row["updated_at"] = types.UTCNowISO()
	return row
}

func copyRow(row map[string]string) map[string]string {
	out := make(map[string]string, len(row)+24)
	for key, value := range row {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func truncateString(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func dedupeSortedFlags(flags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, flag := range flags {
		if !seen[flag] {
			seen[flag] = true
			out = append(out, flag)
		}
	}
	sort.Strings(out)
	return out
}
