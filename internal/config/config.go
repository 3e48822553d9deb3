// Package config loads emailgenius configuration from the app home
// (YAML file) with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all emailgenius configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Generative model configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Durable store configuration
	Store StoreConfig `yaml:"store"`

	// Campaign orchestration settings
	Campaign CampaignConfig `yaml:"campaign"`

	// Enrichment settings
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generation client.
type LLMConfig struct {
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"max_retries"`
	BackoffBase       string  `yaml:"backoff_base"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath  string `yaml:"database_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// CampaignConfig configures campaign runs.
type CampaignConfig struct {
	MaxConcurrency int     `yaml:"max_concurrency"`
	CostPerItemEUR float64 `yaml:"cost_per_item_eur"`
	CostCapEUR     float64 `yaml:"cost_cap_eur"`
}

// EnrichmentConfig configures dossier building.
type EnrichmentConfig struct {
	MaxExtraPages  int    `yaml:"max_extra_pages"`
	FetchTimeout   string `yaml:"fetch_timeout"`
	BrowserEnabled bool   `yaml:"browser_enabled"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`
	Level      string          `yaml:"level" json:"level"`
	Categories map[string]bool `yaml:"categories" json:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "emailgenius",
		Version: "0.4.0",

		LLM: LLMConfig{
			Model:             "gemini-2.5-flash",
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           "90s",
			MaxRetries:        2,
			BackoffBase:       "500ms",
			RequestsPerSecond: 2,
		},

		Embedding: EmbeddingConfig{
			Model:      "gemini-embedding-001",
			Dimensions: 768,
		},

		Store: StoreConfig{
			DatabasePath:  "emailgenius.db",
			RetentionDays: 90,
		},

		Campaign: CampaignConfig{
			MaxConcurrency: 4,
			CostPerItemEUR: 0.05,
			CostCapEUR:     25,
		},

		Enrichment: EnrichmentConfig{
			MaxExtraPages:  2,
			FetchTimeout:   "20s",
			BrowserEnabled: false,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Home returns the app home directory, creating it if needed.
// Controlled by EMAILGENIUS_HOME, default ".emailgenius".
func Home() (string, error) {
	root := os.Getenv("EMAILGENIUS_HOME")
	if root == "" {
		root = ".emailgenius"
	}
	if root == "~" || len(root) > 1 && root[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root = filepath.Join(home, root[1:])
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("failed to create app home: %w", err)
	}
	return root, nil
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("EMAILGENIUS_CHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if model := os.Getenv("EMAILGENIUS_EMBED_MODEL"); model != "" {
		c.Embedding.Model = model
	}
	if path := os.Getenv("EMAILGENIUS_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if days := os.Getenv("EMAILGENIUS_RETENTION_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			c.Store.RetentionDays = n
		}
	}
	if workers := os.Getenv("EMAILGENIUS_MAX_CONCURRENCY"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			c.Campaign.MaxConcurrency = n
		}
	}
	if costCap := os.Getenv("EMAILGENIUS_COST_CAP_EUR"); costCap != "" {
		if f, err := strconv.ParseFloat(costCap, 64); err == nil && f >= 0 {
			c.Campaign.CostCapEUR = f
		}
	}
}

// HasCredentials reports whether a generation API key is configured.
func (c *Config) HasCredentials() bool {
	return c.LLM.APIKey != ""
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// GetBackoffBase returns the gateway backoff base as a duration.
func (c *Config) GetBackoffBase() time.Duration {
	d, err := time.ParseDuration(c.LLM.BackoffBase)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetFetchTimeout returns the enrichment fetch timeout as a duration.
func (c *Config) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Enrichment.FetchTimeout)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive, got %d", c.Store.RetentionDays)
	}
	if c.Campaign.CostPerItemEUR < 0 {
		return fmt.Errorf("cost_per_item_eur must be non-negative")
	}
	if c.Campaign.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1")
	}
	return nil
}
