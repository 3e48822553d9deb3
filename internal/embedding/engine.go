// Package embedding provides vector embedding generation for knowledge
// retrieval. Two backends: Google GenAI (cloud) and a deterministic
// hash engine used when no credential is available or the cloud call
// fails.
package embedding

import (
	"context"
	"fmt"
	"math"

	"emailgenius/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// Config holds embedding engine configuration.
type Config struct {
	// GenAI configuration; empty APIKey selects the hash engine
	APIKey string `json:"api_key"`
	Model  string `json:"model"` // Default: "gemini-embedding-001"

	// Hash engine dimensionality (also used when GenAI degrades)
	Dimensions int `json:"dimensions"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:      "gemini-embedding-001",
		Dimensions: 768,
	}
}

// NewEngine creates an embedding engine based on configuration.
// Without an API key the deterministic hash engine is returned, so
// callers always get a working engine.
func NewEngine(cfg Config) Engine {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}

	if cfg.APIKey == "" {
		logging.Embedding("No API key configured, using hash embedding engine (dim=%d)", cfg.Dimensions)
		return NewHashEngine(cfg.Dimensions)
	}

	engine, err := NewGenAIEngine(cfg.APIKey, cfg.Model, cfg.Dimensions)
	if err != nil {
		logging.EmbeddingWarn("GenAI engine unavailable (%v), degrading to hash engine", err)
		return NewHashEngine(cfg.Dimensions)
	}
	logging.Embedding("Embedding engine ready: %s (dim=%d)", engine.Name(), engine.Dimensions())
	return engine
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}

	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}

// SimilarityResult represents a similarity search result.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK returns the indices of the top K most similar corpus vectors
// to the query, by cosine similarity, descending. Vectors with a
// dimension mismatch are skipped.
func FindTopK(query []float32, corpus [][]float32, k int) []SimilarityResult {
	if k <= 0 {
		k = 10
	}

	results := make([]SimilarityResult, 0, len(corpus))
	skipped := 0
	for i, vec := range corpus {
		sim, err := CosineSimilarity(query, vec)
		if err != nil {
			skipped++
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: sim})
	}
	if skipped > 0 {
		logging.EmbeddingWarn("FindTopK: skipped %d vectors due to dimension mismatch", skipped)
	}

	// Selection sort over the first k slots; corpora here are small.
	for i := 0; i < len(results) && i < k; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	if len(results) > k {
		results = results[:k]
	}
	return results
}
