package campaign

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"emailgenius/internal/enrichment"
	"emailgenius/internal/generation"
	"emailgenius/internal/knowledge"
	"emailgenius/internal/leads"
	"emailgenius/internal/logging"
	"emailgenius/internal/store"
	"emailgenius/internal/types"
)

// Campaign lifecycle statuses.
const (
	campaignStatusRunning     = "RUNNING"
	campaignStatusAggregating = "AGGREGATING"
	campaignStatusCompleted   = "COMPLETED"
	campaignStatusFailed      = "FAILED"
)

// DefaultCostPerItemEUR is the flat per-item cost estimate used by the
// pre-run budget check.
const DefaultCostPerItemEUR = 0.05

// Options configures one campaign run.
type Options struct {
	ParentSlug     string
	LeadsCSVPath   string
	OutDir         string
	RecipientMode  string // company or row
	VariantMode    string // ab or abc
	OutputSchema   string // ab or abc
	LLMPolicy      string // strict or fallback
	EnrichmentMode string // auto, minimal, hybrid or web

	MaxConcurrency int
	MaxRetries     int
	BackoffBase    time.Duration

	CostPerItemEUR    float64
	CostCapEUR        float64
	ForceCostOverride bool

	RAGEnabled    bool
	RetentionDays int
}

// Runner wires the collaborators a campaign run needs.
type Runner struct {
	store    *store.LocalStore
	gateway  *generation.Gateway
	enricher *enrichment.Builder
	ingestor *knowledge.Ingestor
}

// NewRunner builds a Runner. The enricher and ingestor are optional:
// without an enricher every item gets the minimal CSV dossier, without
// an ingestor no knowledge snippets are retrieved.
func NewRunner(localStore *store.LocalStore, gateway *generation.Gateway, enricher *enrichment.Builder, ingestor *knowledge.Ingestor) *Runner {
	return &Runner{store: localStore, gateway: gateway, enricher: enricher, ingestor: ingestor}
}

// RunResult bundles what a completed run produced.
type RunResult struct {
	Summary    types.CampaignSummary
	ExportPath string
	ExportRows []map[string]string
}

// Run executes the full campaign pipeline: preflight, cost check,
// per-item generation, aggregation, export and retention purge.
func (r *Runner) Run(ctx context.Context, opts Options) (*RunResult, error) {
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}

	parent, err := r.store.GetParentProfile(opts.ParentSlug)
	if err != nil {
		return nil, fmt.Errorf("parent profile not found for slug %q: %w", opts.ParentSlug, err)
	}

	csvData, err := leads.ReadLeadsCSV(opts.LeadsCSVPath)
	if err != nil {
		return nil, err
	}
	preflight := leads.Preflight(csvData, leads.DefaultRequiredFields)
	if preflight.RowsTotal == 0 {
		return nil, fmt.Errorf("leads CSV has no rows")
	}

	logging.Campaign("Header mapping: %s", leads.FormatHeaderMapping(preflight.HeaderMapping))
	logging.Campaign("Preflight rows=%d valid=%d skipped=%d", preflight.RowsTotal, preflight.RowsValid, preflight.RowsSkipped)

	// Only rows carrying a usable website URL cost anything; the rest
	// render from the seed template.
	perItemCost := opts.CostPerItemEUR
	if perItemCost <= 0 {
		perItemCost = DefaultCostPerItemEUR
	}
	billableRows := countBillableRows(preflight.Rows)
	estimatedCost := EstimateCostEUR(billableRows, perItemCost)
	if estimatedCost > opts.CostCapEUR && !opts.ForceCostOverride {
		return nil, fmt.Errorf(
			"estimated campaign cost %.2f EUR exceeds cap %.2f EUR, use the cost override to continue",
			estimatedCost, opts.CostCapEUR,
		)
	}

	campaignID, err := r.store.CreateCampaign(opts.ParentSlug, opts.LeadsCSVPath, campaignStatusRunning)
	if err != nil {
		return nil, err
	}

	proc := &processor{
		campaignID:     campaignID,
		parentSlug:     opts.ParentSlug,
		parent:         *parent,
		gateway:        r.gateway,
		enricher:       r.enricher,
		ingestor:       r.ingestor,
		enrichmentMode: resolveEnrichmentMode(opts.RecipientMode, opts.EnrichmentMode),
		variantMode:    opts.VariantMode,
		policy:         opts.LLMPolicy,
		outputSchema:   opts.OutputSchema,
		ragEnabled:     opts.RAGEnabled,
		maxRetries:     opts.MaxRetries,
		backoffBase:    opts.BackoffBase,
	}

	var outcomes []itemOutcome
	if opts.RecipientMode == "row" {
		outcomes, err = r.runRowMode(ctx, proc, preflight, opts.MaxConcurrency)
	} else {
		outcomes, err = r.runCompanyMode(ctx, proc, preflight)
	}
	if err != nil {
		r.failCampaign(campaignID)
		return nil, err
	}

	if err := r.store.UpdateCampaignStatus(campaignID, campaignStatusAggregating); err != nil {
		return nil, err
	}

	agg, err := r.aggregate(campaignID, proc, preflight, outcomes)
	if err != nil {
		r.failCampaign(campaignID)
		return nil, err
	}

	exportPath := filepath.Join(opts.OutDir, "campaign-"+campaignID+".csv")
	columns := MergeColumns(preflight.InputColumns, ApprovalColumns(opts.OutputSchema))
	if err := WriteCSV(exportPath, agg.exportRows, columns); err != nil {
		r.failCampaign(campaignID)
		return nil, err
	}

	summary := types.CampaignSummary{
		CampaignID:       campaignID,
		ParentSlug:       opts.ParentSlug,
		LeadsFile:        opts.LeadsCSVPath,
		Status:           campaignStatusCompleted,
		CompaniesTotal:   agg.processedCompanies,
		GeneratedTotal:   agg.rowsGeneratedOK,
		WarningsTotal:    agg.warningsTotal,
		RecipientMode:    opts.RecipientMode,
		VariantMode:      opts.VariantMode,
		OutputSchema:     opts.OutputSchema,
		LLMPolicy:        opts.LLMPolicy,
		RowsTotal:        preflight.RowsTotal,
		RowsValid:        preflight.RowsValid,
		RowsSkipped:      preflight.RowsSkipped,
		RowsGeneratedOK:  agg.rowsGeneratedOK,
		RowsFailed:       agg.rowsFailed,
		EstimatedCostEUR: estimatedCost,
		ActualCostEUR:    roundTwo(perItemCost * float64(agg.billableGeneratedOK)),
	}

	if err := r.store.FinalizeCampaign(campaignID, summary); err != nil {
		return nil, err
	}
	if _, err := r.store.PurgeExpired(opts.RetentionDays); err != nil {
		logging.CampaignWarn("Retention purge failed: %v", err)
	}

	logging.Campaign("Campaign %s completed: %d generated, %d failed, %d skipped",
		campaignID, agg.rowsGeneratedOK, agg.rowsFailed, preflight.RowsSkipped)
	return &RunResult{Summary: summary, ExportPath: exportPath, ExportRows: agg.exportRows}, nil
}

// runRowMode processes every valid row concurrently. The first fatal
// outcome cancels the remaining work.
func (r *Runner) runRowMode(ctx context.Context, proc *processor, preflight *leads.PreflightResult, maxConcurrency int) ([]itemOutcome, error) {
	var validRows []leads.PreflightRow
	for _, row := range preflight.Rows {
		if row.IsValid {
			validRows = append(validRows, row)
		}
	}
	if len(validRows) == 0 {
		return nil, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxInt(maxConcurrency, 1))

	var mu sync.Mutex
	var done atomic.Int64
	total := len(validRows)
	outcomes := make([]itemOutcome, 0, total)

	for _, row := range validRows {
		row := row
		group.Go(func() error {
			// A fatal sibling or a cancelled caller stops queued work
			// before it spends anything.
			if err := groupCtx.Err(); err != nil {
				return err
			}
			outcome := proc.processItem(groupCtx, itemInput{
				RowIndex:   row.RowIndex,
				CompanyKey: leads.CompanyKey(row.Row),
				Rows:       []leads.PreflightRow{row},
				RawRow:     row.RawRow,
			})
			if outcome.Fatal {
				return fmt.Errorf("fatal campaign error: %s", outcome.ErrMessage)
			}

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()

			if n := done.Add(1); n%10 == 0 || n == int64(total) {
				logging.Campaign("Generated %d/%d", n, total)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// runCompanyMode processes company groups sequentially in first-seen
// order. Fatal outcomes abort immediately.
func (r *Runner) runCompanyMode(ctx context.Context, proc *processor, preflight *leads.PreflightResult) ([]itemOutcome, error) {
	var validRows []leads.PreflightRow
	for _, row := range preflight.Rows {
		if row.IsValid {
			validRows = append(validRows, row)
		}
	}
	keys, groups := leads.GroupRowsByCompany(validRows)

	var outcomes []itemOutcome
	for _, key := range keys {
		rows := groups[key]
		outcome := proc.processItem(ctx, itemInput{
			RowIndex:   rows[0].RowIndex,
			CompanyKey: key,
			Rows:       rows,
			RawRow:     rows[0].RawRow,
		})
		if outcome.Fatal {
			return nil, fmt.Errorf("fatal campaign error: %s", outcome.ErrMessage)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// aggregated holds the run-level counters and export rows.
type aggregated struct {
	exportRows          []map[string]string
	warningsTotal       int
	rowsGeneratedOK     int
	billableGeneratedOK int
	rowsFailed          int
	processedCompanies  int
}

// aggregate persists outcomes and assembles the export in input order:
// generated and error rows where their source rows were, skipped rows
// in place for row mode and appended for company mode.
func (r *Runner) aggregate(campaignID string, proc *processor, preflight *leads.PreflightResult, outcomes []itemOutcome) (*aggregated, error) {
	byRowIndex := make(map[int]itemOutcome, len(outcomes))
	for _, outcome := range outcomes {
		byRowIndex[outcome.RowIndex] = outcome
	}

	agg := &aggregated{}
	consume := func(outcome itemOutcome) error {
		agg.exportRows = append(agg.exportRows, outcome.ExportRow)
		if outcome.Warning {
			agg.warningsTotal++
		}
		if outcome.Failed {
			agg.rowsFailed++
		} else {
			agg.rowsGeneratedOK++
			if outcome.Billable {
				agg.billableGeneratedOK++
			}
		}
		if outcome.Result != nil {
			email := ""
			if outcome.Result.Contact != nil {
				email = outcome.Result.Contact.Email
			}
			status := outcome.ExportRow["generation_status"]
			if err := r.store.InsertCampaignRecord(
				campaignID, outcome.RowIndex, email, outcome.Result.Company.CompanyKey, status, *outcome.Result,
			); err != nil {
				return err
			}
			agg.processedCompanies++
		}
		return nil
	}

	for _, row := range preflight.Rows {
		if outcome, ok := byRowIndex[row.RowIndex]; ok {
			if err := consume(outcome); err != nil {
				return nil, err
			}
			delete(byRowIndex, row.RowIndex)
			continue
		}
		if !row.IsValid {
			agg.warningsTotal++
			agg.exportRows = append(agg.exportRows,
				skippedValidationRow(campaignID, proc.parentSlug, row.RawRow, row.MissingRequired))
		}
	}
	return agg, nil
}

func (r *Runner) failCampaign(campaignID string) {
	if err := r.store.UpdateCampaignStatus(campaignID, campaignStatusFailed); err != nil {
		logging.CampaignWarn("Could not mark campaign %s failed: %v", campaignID, err)
	}
}

// EstimateCostEUR is the flat pre-run budget estimate over the billable
// item count.
func EstimateCostEUR(billableRows int, costPerItem float64) float64 {
	if costPerItem <= 0 {
		costPerItem = DefaultCostPerItemEUR
	}
	return roundTwo(float64(billableRows) * costPerItem)
}

// countBillableRows counts valid rows whose website URL parses. Rows
// without one never reach the paid enrichment-and-generation path.
func countBillableRows(rows []leads.PreflightRow) int {
	n := 0
	for _, row := range rows {
		if row.IsValid && leads.CleanURL(row.Row["Company Website Full"]) != "" {
			n++
		}
	}
	return n
}

func validateOptions(opts *Options) error {
	switch opts.RecipientMode {
	case "company", "row":
	default:
		return fmt.Errorf("recipient_mode must be one of: company, row")
	}
	switch opts.VariantMode {
	case generation.VariantModeAB, generation.VariantModeABC:
	default:
		return fmt.Errorf("variant_mode must be one of: ab, abc")
	}
	switch opts.OutputSchema {
	case "ab", "abc":
	default:
		return fmt.Errorf("output_schema must be one of: ab, abc")
	}
	switch opts.LLMPolicy {
	case generation.PolicyStrict, generation.PolicyFallback:
	default:
		return fmt.Errorf("llm_policy must be one of: strict, fallback")
	}
	switch opts.EnrichmentMode {
	case "", "auto", "minimal", "hybrid", "web":
	default:
		return fmt.Errorf("enrichment_mode must be one of: auto, minimal, hybrid, web")
	}
	if opts.CostCapEUR <= 0 {
		return fmt.Errorf("cost_cap_eur must be positive")
	}
	return nil
}

// resolveEnrichmentMode maps auto to the cheap path for row mode and
// the web path for company mode.
func resolveEnrichmentMode(recipientMode, enrichmentMode string) string {
	switch enrichmentMode {
	case "", "auto":
		if recipientMode == "row" {
			return "minimal"
		}
		return "web"
	default:
		return enrichmentMode
	}
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
