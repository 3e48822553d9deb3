package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"emailgenius/internal/campaign"
	"emailgenius/internal/generation"
)

var (
	campaignParent         string
	campaignLeads          string
	campaignOutDir         string
	campaignRecipientMode  string
	campaignVariantMode    string
	campaignOutputSchema   string
	campaignLLMPolicy      string
	campaignEnrichmentMode string
	campaignMaxConcurrency int
	campaignMaxRetries     int
	campaignBackoffBase    time.Duration
	campaignCostCap        float64
	campaignForceCost      bool

	campaignExportOut    string
	campaignExportSchema string
	campaignListLimit    int
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run, inspect and export outreach campaigns",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full campaign from a leads CSV",
	Long: `Runs the whole pipeline: preflight, cost check, enrichment,
generation and CSV export. The export lands in the output directory as
campaign-<id>.csv, ready for human review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		runner := campaign.NewRunner(
			localStore,
			generation.NewGateway(newGenerationClient()),
			newEnricher(),
			newIngestor(localStore),
		)

		maxConcurrency := campaignMaxConcurrency
		if maxConcurrency <= 0 {
			maxConcurrency = appConfig.Campaign.MaxConcurrency
		}
		maxRetries := campaignMaxRetries
		if maxRetries < 0 {
			maxRetries = appConfig.LLM.MaxRetries
		}
		costCap := campaignCostCap
		if costCap <= 0 {
			costCap = appConfig.Campaign.CostCapEUR
		}
		backoffBase := campaignBackoffBase
		if backoffBase <= 0 {
			backoffBase = appConfig.GetBackoffBase()
		}

		result, err := runner.Run(cmd.Context(), campaign.Options{
			ParentSlug:        campaignParent,
			LeadsCSVPath:      campaignLeads,
			OutDir:            campaignOutDir,
			RecipientMode:     campaignRecipientMode,
			VariantMode:       campaignVariantMode,
			OutputSchema:      campaignOutputSchema,
			LLMPolicy:         campaignLLMPolicy,
			EnrichmentMode:    campaignEnrichmentMode,
			MaxConcurrency:    maxConcurrency,
			MaxRetries:        maxRetries,
			BackoffBase:       backoffBase,
			CostPerItemEUR:    appConfig.Campaign.CostPerItemEUR,
			CostCapEUR:        costCap,
			ForceCostOverride: campaignForceCost,
			RAGEnabled:        true,
			RetentionDays:     appConfig.Store.RetentionDays,
		})
		if err != nil {
			return err
		}

		summary := result.Summary
		fmt.Printf("Campaign %s completed\n", summary.CampaignID)
		fmt.Printf("  rows: %d total, %d valid, %d skipped\n", summary.RowsTotal, summary.RowsValid, summary.RowsSkipped)
		fmt.Printf("  generated: %d ok, %d failed, %d warnings\n", summary.RowsGeneratedOK, summary.RowsFailed, summary.WarningsTotal)
		fmt.Printf("  cost: %.2f EUR estimated, %.2f EUR actual\n", summary.EstimatedCostEUR, summary.ActualCostEUR)
		fmt.Printf("  export: %s\n", result.ExportPath)
		return nil
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status [campaign-id]",
	Short: "Show the summary of a finalized campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		status, err := campaign.GetStatus(localStore, args[0])
		if err != nil {
			return err
		}

		summary := status.Summary
		fmt.Printf("Campaign %s (%s)\n", summary.CampaignID, summary.Status)
		fmt.Printf("  parent: %s, leads: %s\n", summary.ParentSlug, summary.LeadsFile)
		fmt.Printf("  modes: recipient=%s variants=%s schema=%s policy=%s\n",
			summary.RecipientMode, summary.VariantMode, summary.OutputSchema, summary.LLMPolicy)
		fmt.Printf("  rows: %d total, %d valid, %d skipped, %d ok, %d failed\n",
			summary.RowsTotal, summary.RowsValid, summary.RowsSkipped, summary.RowsGeneratedOK, summary.RowsFailed)
		fmt.Printf("  records: %d\n", status.RecordsTotal)

		statuses := make([]string, 0, len(status.RecordStatusCounts))
		for s := range status.RecordStatusCounts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Printf("    %s: %d\n", s, status.RecordStatusCounts[s])
		}
		return nil
	},
}

var campaignExportCmd = &cobra.Command{
	Use:   "export [campaign-id]",
	Short: "Re-export a stored campaign to an approval CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		if err := campaign.ExportCampaign(localStore, args[0], campaignExportOut, campaignExportSchema); err != nil {
			return err
		}
		fmt.Printf("Exported campaign %s to %s\n", args[0], campaignExportOut)
		return nil
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored campaigns, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		infos, err := localStore.ListCampaigns(campaignListLimit)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No campaigns found")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %-12s  parent=%s  leads=%s  created=%s\n",
				info.ID, info.Status, info.ParentSlug, info.LeadsFile, info.CreatedAt)
		}
		return nil
	},
}

func init() {
	campaignRunCmd.Flags().StringVar(&campaignParent, "parent", "", "Parent profile slug (required)")
	campaignRunCmd.Flags().StringVar(&campaignLeads, "leads", "", "Path to the leads CSV (required)")
	campaignRunCmd.Flags().StringVar(&campaignOutDir, "out", "out", "Output directory for the export CSV")
	campaignRunCmd.Flags().StringVar(&campaignRecipientMode, "recipient-mode", "company", "Recipient mode: company or row")
	campaignRunCmd.Flags().StringVar(&campaignVariantMode, "variant-mode", "ab", "Variant mode: ab or abc")
	campaignRunCmd.Flags().StringVar(&campaignOutputSchema, "output-schema", "ab", "Export schema: ab or abc")
	campaignRunCmd.Flags().StringVar(&campaignLLMPolicy, "llm-policy", "strict", "LLM policy: strict or fallback")
	campaignRunCmd.Flags().StringVar(&campaignEnrichmentMode, "enrichment-mode", "auto", "Enrichment mode: auto, minimal, hybrid or web")
	campaignRunCmd.Flags().IntVar(&campaignMaxConcurrency, "max-concurrency", 0, "Concurrent workers in row mode (default from config)")
	campaignRunCmd.Flags().IntVar(&campaignMaxRetries, "max-retries", -1, "Generation retries per item (default from config)")
	campaignRunCmd.Flags().DurationVar(&campaignBackoffBase, "backoff-base", 0, "Base delay between generation retries (default from config)")
	campaignRunCmd.Flags().Float64Var(&campaignCostCap, "cost-cap", 0, "Cost cap in EUR (default from config)")
	campaignRunCmd.Flags().BoolVar(&campaignForceCost, "force-cost-override", false, "Run even when the estimate exceeds the cap")
	_ = campaignRunCmd.MarkFlagRequired("parent")
	_ = campaignRunCmd.MarkFlagRequired("leads")

	campaignExportCmd.Flags().StringVar(&campaignExportOut, "out", "export.csv", "Output CSV path")
	campaignExportCmd.Flags().StringVar(&campaignExportSchema, "output-schema", "auto", "Export schema: auto, ab or abc")

	campaignListCmd.Flags().IntVar(&campaignListLimit, "limit", 20, "Maximum campaigns to list")

	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignStatusCmd)
	campaignCmd.AddCommand(campaignExportCmd)
	campaignCmd.AddCommand(campaignListCmd)
}
