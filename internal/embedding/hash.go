package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var hashTokenRe = regexp.MustCompile(`[a-zA-Z0-9_]{2,}`)

// HashEngine is a deterministic, offline embedding engine. Each token
// is hashed into a bucket of a fixed-dimension vector with a
// sign derived from the digest; the result is L2-normalized. Quality is
// far below a learned model but similarity of related texts is still
// above random, which is enough to keep knowledge retrieval functional
// without a credential.
type HashEngine struct {
	dim int
}

// NewHashEngine creates a hash embedding engine with the given
// dimensionality.
func NewHashEngine(dim int) *HashEngine {
	if dim <= 0 {
		dim = 768
	}
	return &HashEngine{dim: dim}
}

// Embed generates a deterministic embedding for a single text.
func (e *HashEngine) Embed(_ context.Context, text string) ([]float32, error) {
	return HashVector(text, e.dim), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEngine) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashVector(t, e.dim)
	}
	return out, nil
}

// Dimensions returns the dimensionality of embeddings.
func (e *HashEngine) Dimensions() int {
	return e.dim
}

// Name returns the engine name.
func (e *HashEngine) Name() string {
	return fmt.Sprintf("hash:%d", e.dim)
}

// HashVector builds the L2-normalized token-hash vector for a text.
// Empty or token-free text yields the zero vector.
func HashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	tokens := hashTokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return vector
	}

	for _, token := range tokens {
		digest := sha256.Sum256([]byte(token))
		idx := (int(digest[0])<<8 | int(digest[1])) % dim
		sign := float32(1)
		if digest[2]%2 == 1 {
			sign = -1
		}
		vector[idx] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}
