// Package knowledge ingests parent marketing material into the store
// as embedded chunks and retrieves the snippets most relevant to a
// target company during generation.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emailgenius/internal/embedding"
	"emailgenius/internal/logging"
	"emailgenius/internal/store"
)

const (
	chunkSize    = 1300
	chunkOverlap = 220
)

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	ParentSlug      string
	SourcePath      string
	ChunksTotal     int
	AlreadyIngested bool
}

// Ingestor wires the store and embedding engine for knowledge work.
type Ingestor struct {
	store  *store.LocalStore
	engine embedding.Engine
}

// NewIngestor builds an Ingestor.
func NewIngestor(localStore *store.LocalStore, engine embedding.Engine) *Ingestor {
	return &Ingestor{store: localStore, engine: engine}
}

// IngestFile reads a text document, chunks it, embeds every chunk and
// stores the result under the parent. Re-ingesting identical content is
// a no-op keyed on the content hash.
func (ing *Ingestor) IngestFile(ctx context.Context, parentSlug, filePath string) (*IngestResult, error) {
	text, err := extractText(filePath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	contentHash := sha256Hex(raw)

	documentID, existed, err := ing.store.UpsertKnowledgeDocument(parentSlug, filePath, contentHash)
	if err != nil {
		return nil, err
	}
	if existed {
		logging.Knowledge("Document %s already ingested for %s", filepath.Base(filePath), parentSlug)
		count, _ := ing.store.CountKnowledgeChunks(parentSlug)
		return &IngestResult{
			ParentSlug:      parentSlug,
			SourcePath:      filePath,
			ChunksTotal:     count,
			AlreadyIngested: true,
		}, nil
	}

	chunks := ChunkText(text, chunkSize, chunkOverlap)
	vectors, err := ing.engine.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if err := ing.store.InsertKnowledgeChunks(documentID, parentSlug, chunks, vectors); err != nil {
		return nil, err
	}

	logging.Knowledge("Ingested %d chunks from %s for %s", len(chunks), filepath.Base(filePath), parentSlug)
	return &IngestResult{
		ParentSlug:  parentSlug,
		SourcePath:  filePath,
		ChunksTotal: len(chunks),
	}, nil
}

// RetrieveSnippets returns the contents of the parent's chunks most
// similar to the query text. Errors degrade to no snippets.
func (ing *Ingestor) RetrieveSnippets(ctx context.Context, parentSlug, query string, topK int) []string {
	vector, err := ing.engine.Embed(ctx, query)
	if err != nil {
		logging.KnowledgeWarn("Snippet query embedding failed: %v", err)
		return nil
	}
	hits, err := ing.store.SearchKnowledgeChunks(parentSlug, vector, topK)
	if err != nil {
		logging.KnowledgeWarn("Snippet search failed: %v", err)
		return nil
	}

	var snippets []string
	for _, hit := range hits {
		snippets = append(snippets, hit.Chunk.Content)
	}
	return snippets
}

// extractText loads a supported document as plain text. Only textual
// formats are supported; PDF and DOCX sources must be converted first.
func extractText(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".markdown", ".txt":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type %q: use Markdown or TXT", filepath.Ext(filePath))
	}
}

// ChunkText splits whitespace-normalized text into overlapping windows.
func ChunkText(text string, size, overlap int) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}
	if size <= 0 {
		size = chunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(normalized); start += step {
		end := start + size
		if end > len(normalized) {
			end = len(normalized)
		}
		chunks = append(chunks, normalized[start:end])
		if end == len(normalized) {
			break
		}
	}
	return chunks
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
