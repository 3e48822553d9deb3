package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailgenius/internal/embedding"
	"emailgenius/internal/store"
)

func newTestIngestor(t *testing.T) *Ingestor {
	t.Helper()
	s, err := store.NewLocalStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewIngestor(s, embedding.NewHashEngine(64))
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIngestFile(t *testing.T) {
	ing := newTestIngestor(t)
	path := writeDoc(t, "offerta.md", strings.Repeat("gestione campagne pubblicitarie per PMI italiane. ", 60))

	result, err := ing.IngestFile(context.Background(), "verdi", path)
	require.NoError(t, err)
	assert.False(t, result.AlreadyIngested)
	assert.Greater(t, result.ChunksTotal, 1)
}

func TestIngestFileIdempotentByContent(t *testing.T) {
	ing := newTestIngestor(t)
	path := writeDoc(t, "offerta.md", "contenuto stabile")

	first, err := ing.IngestFile(context.Background(), "verdi", path)
	require.NoError(t, err)
	second, err := ing.IngestFile(context.Background(), "verdi", path)
	require.NoError(t, err)

	assert.False(t, first.AlreadyIngested)
	assert.True(t, second.AlreadyIngested)
	assert.Equal(t, first.ChunksTotal, second.ChunksTotal)
}

func TestIngestFileUnsupportedType(t *testing.T) {
	ing := newTestIngestor(t)
	path := writeDoc(t, "offerta.pdf", "finto pdf")

	_, err := ing.IngestFile(context.Background(), "verdi", path)
	assert.Error(t, err)
}

func TestRetrieveSnippets(t *testing.T) {
	ing := newTestIngestor(t)
	path := writeDoc(t, "kb.md", "campagne advertising per ecommerce e lead generation B2B")

	_, err := ing.IngestFile(context.Background(), "verdi", path)
	require.NoError(t, err)

	snippets := ing.RetrieveSnippets(context.Background(), "verdi", "advertising ecommerce", 3)
	require.NotEmpty(t, snippets)
	assert.Contains(t, snippets[0], "advertising")

	assert.Empty(t, ing.RetrieveSnippets(context.Background(), "altro", "advertising", 3))
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 chars
	chunks := ChunkText(text, 200, 50)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 200)
	// Consecutive chunks share the overlap window.
	assert.Equal(t, chunks[0][150:], chunks[1][:50])
}

func TestChunkTextNormalizesWhitespace(t *testing.T) {
	chunks := ChunkText("uno\n\n  due\ttre", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "uno due tre", chunks[0])
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("   \n ", 100, 10))
}
