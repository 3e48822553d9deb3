package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"emailgenius/internal/config"
	"emailgenius/internal/embedding"
	"emailgenius/internal/enrichment"
	"emailgenius/internal/generation"
	"emailgenius/internal/knowledge"
	"emailgenius/internal/logging"
	"emailgenius/internal/search"
	"emailgenius/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded at startup
	appConfig *config.Config
	appHome   string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "emailgenius",
	Short: "emailgenius - evidence-grounded outreach campaign engine",
	Long: `emailgenius turns a leads CSV into reviewable outreach email variants.

Every campaign runs the same pipeline: preflight the CSV, check the cost
cap, enrich each target company with public evidence, generate A/B(/C)
variants through the guarded LLM gateway, and export an approval sheet
for human review. Nothing is ever sent automatically.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		appHome, err = config.Home()
		if err != nil {
			return err
		}
		if err := logging.Initialize(appHome); err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = filepath.Join(appHome, "config.yaml")
		}
		appConfig, err = config.Load(path)
		if err != nil {
			return err
		}
		return appConfig.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openStore opens the SQLite store under the app home.
func openStore() (*store.LocalStore, error) {
	path := appConfig.Store.DatabasePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(appHome, path)
	}
	return store.NewLocalStore(path)
}

// newEmbeddingEngine builds the configured embedding engine. Without an
// API key the deterministic hash engine is used.
func newEmbeddingEngine() embedding.Engine {
	return embedding.NewEngine(embedding.Config{
		APIKey:     appConfig.LLM.APIKey,
		Model:      appConfig.Embedding.Model,
		Dimensions: appConfig.Embedding.Dimensions,
	})
}

// newGenerationClient builds the LLM client, or the not-configured stub
// when no credential is present.
func newGenerationClient() generation.Client {
	if !appConfig.HasCredentials() {
		return generation.NotConfiguredClient{}
	}
	gcfg := generation.DefaultGeminiConfig(appConfig.LLM.APIKey)
	if appConfig.LLM.Model != "" {
		gcfg.Model = appConfig.LLM.Model
	}
	if appConfig.LLM.BaseURL != "" {
		gcfg.BaseURL = appConfig.LLM.BaseURL
	}
	gcfg.Timeout = appConfig.GetLLMTimeout()
	if appConfig.LLM.RequestsPerSecond > 0 {
		gcfg.RequestsPerSecond = appConfig.LLM.RequestsPerSecond
	}
	return generation.NewGeminiClient(gcfg)
}

// newEnricher wires the web search client and the page fetcher.
func newEnricher() *enrichment.Builder {
	searchClient := search.NewClient(appConfig.GetFetchTimeout())
	var fetcher enrichment.Fetcher
	if appConfig.Enrichment.BrowserEnabled {
		fetcher = enrichment.NewRodFetcher(true, 0)
	} else {
		fetcher = enrichment.NewHTTPFetcher(appConfig.GetFetchTimeout())
	}
	return enrichment.NewBuilder(searchClient, fetcher, appConfig.Enrichment.MaxExtraPages)
}

func newIngestor(localStore *store.LocalStore) *knowledge.Ingestor {
	return knowledge.NewIngestor(localStore, newEmbeddingEngine())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: <home>/config.yaml)")

	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
