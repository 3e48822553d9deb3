package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var knowledgeParent string

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the parent knowledge base",
}

var knowledgeIngestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest marketing documents for a parent",
	Long: `Chunks and embeds Markdown or TXT documents into the parent's
knowledge base. Re-ingesting unchanged content is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		ingestor := newIngestor(localStore)
		for _, path := range args {
			result, err := ingestor.IngestFile(cmd.Context(), knowledgeParent, path)
			if err != nil {
				return fmt.Errorf("ingest of %s failed: %w", path, err)
			}
			if result.AlreadyIngested {
				fmt.Printf("%s: unchanged, %d chunks already stored\n", path, result.ChunksTotal)
			} else {
				fmt.Printf("%s: ingested %d chunks\n", path, result.ChunksTotal)
			}
		}
		return nil
	},
}

var knowledgeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show chunk counts for a parent",
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		count, err := localStore.CountKnowledgeChunks(knowledgeParent)
		if err != nil {
			return err
		}
		fmt.Printf("Parent %q has %d knowledge chunks\n", knowledgeParent, count)
		return nil
	},
}

func init() {
	knowledgeIngestCmd.Flags().StringVar(&knowledgeParent, "parent", "", "Parent profile slug (required)")
	_ = knowledgeIngestCmd.MarkFlagRequired("parent")
	knowledgeStatsCmd.Flags().StringVar(&knowledgeParent, "parent", "", "Parent profile slug (required)")
	_ = knowledgeStatsCmd.MarkFlagRequired("parent")

	knowledgeCmd.AddCommand(knowledgeIngestCmd)
	knowledgeCmd.AddCommand(knowledgeStatsCmd)
}
