package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEngineDeterministic(t *testing.T) {
	engine := NewHashEngine(768)
	ctx := context.Background()

	a, err := engine.Embed(ctx, "gestione processi commerciali")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := engine.Embed(ctx, "gestione processi commerciali")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != 768 {
		t.Fatalf("expected 768 dims, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestHashEngineNormalized(t *testing.T) {
	vec := HashVector("alcune parole da trasformare in vettore", 256)
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %v", math.Sqrt(norm))
	}
}

func TestHashEngineEmptyText(t *testing.T) {
	vec := HashVector("", 128)
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector, index %d = %v", i, v)
		}
	}
	// Single-char tokens are below the token minimum too.
	vec = HashVector("a b c", 128)
	for _, v := range vec {
		if v != 0 {
			t.Fatal("expected zero vector for sub-minimum tokens")
		}
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	engine := NewHashEngine(64)
	out, err := engine.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result, got %d vectors", len(out))
	}
}

func TestEmbedBatchOneVectorPerText(t *testing.T) {
	engine := NewHashEngine(64)
	texts := []string{"primo testo", "secondo testo", "terzo testo"}
	out, err := engine.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(out) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(out))
	}
	for i, vec := range out {
		if len(vec) != 64 {
			t.Errorf("vector %d has %d dims, want 64", i, len(vec))
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}
	d := []float32{-1, 0, 0}

	sim, err := CosineSimilarity(a, b)
	if err != nil || math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical vectors: sim=%v err=%v", sim, err)
	}
	sim, _ = CosineSimilarity(a, c)
	if math.Abs(sim) > 1e-9 {
		t.Errorf("orthogonal vectors: sim=%v", sim)
	}
	sim, _ = CosineSimilarity(a, d)
	if math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("opposite vectors: sim=%v", sim)
	}

	if _, err := CosineSimilarity(a, []float32{1, 2}); err == nil {
		t.Error("expected dimension mismatch error")
	}

	sim, err = CosineSimilarity([]float32{0, 0, 0}, a)
	if err != nil || sim != 0 {
		t.Errorf("zero vector: sim=%v err=%v", sim, err)
	}
}

func TestFindTopK(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{0, 1},     // orthogonal
		{1, 0},     // identical
		{0.7, 0.7}, // diagonal
		{1, 2, 3},  // dimension mismatch, skipped
		{-1, 0},    // opposite
	}

	results := FindTopK(query, corpus, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("best match should be index 1, got %d", results[0].Index)
	}
	if results[1].Index != 2 {
		t.Errorf("second match should be index 2, got %d", results[1].Index)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not in descending similarity order")
	}
}

func TestRelatedTextsMoreSimilarThanUnrelated(t *testing.T) {
	dim := 768
	a := HashVector("gestione vendite e processi commerciali per aziende", dim)
	b := HashVector("processi commerciali e gestione vendite aziendali", dim)
	c := HashVector("ricetta torta cioccolato farina zucchero uova burro", dim)

	simAB, _ := CosineSimilarity(a, b)
	simAC, _ := CosineSimilarity(a, c)
	if simAB <= simAC {
		t.Errorf("related texts (%v) should beat unrelated (%v)", simAB, simAC)
	}
}

func TestNewEngineWithoutKeyReturnsHash(t *testing.T) {
	engine := NewEngine(Config{Dimensions: 128})
	if engine.Name() != "hash:128" {
		t.Errorf("expected hash engine, got %s", engine.Name())
	}
	if engine.Dimensions() != 128 {
		t.Errorf("expected 128 dims, got %d", engine.Dimensions())
	}
}
