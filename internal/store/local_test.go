package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailgenius/internal/embedding"
	"emailgenius/internal/types"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testProfile(slug string) types.ParentProfile {
	return types.ParentProfile{
		Slug:          slug,
		CompanyName:   "Agenzia Verdi",
		Tone:          "professionale",
		OfferCatalog:  []string{"campagne lead generation"},
		SenderName:    "Paolo Verdi",
		SenderCompany: "Agenzia Verdi",
	}
}

func TestParentProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertParentProfile(testProfile("verdi")))

	loaded, err := s.GetParentProfile("verdi")
	require.NoError(t, err)
	assert.Equal(t, "Agenzia Verdi", loaded.CompanyName)
	assert.Equal(t, []string{"campagne lead generation"}, loaded.OfferCatalog)
}

func TestParentProfileUpsertReplaces(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertParentProfile(testProfile("verdi")))
	updated := testProfile("verdi")
	updated.Tone = "informale"
	require.NoError(t, s.UpsertParentProfile(updated))

	loaded, err := s.GetParentProfile("verdi")
	require.NoError(t, err)
	assert.Equal(t, "informale", loaded.Tone)

	infos, err := s.ListParentProfiles()
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestParentProfileMissingSlug(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.UpsertParentProfile(types.ParentProfile{}))
}

func TestParentProfileNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetParentProfile("ghost")
	assert.Error(t, err)
}

func TestActiveParentProfile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertParentProfile(testProfile("uno")))
	require.NoError(t, s.UpsertParentProfile(testProfile("due")))

	_, err := s.GetActiveParentProfile()
	assert.Error(t, err)

	require.NoError(t, s.SetActiveParentProfile("uno"))
	require.NoError(t, s.SetActiveParentProfile("due"))

	active, err := s.GetActiveParentProfile()
	require.NoError(t, err)
	assert.Equal(t, "due", active.Slug)

	assert.Error(t, s.SetActiveParentProfile("ghost"))
}

func TestKnowledgeDocumentDeduplicatedByHash(t *testing.T) {
	s := newTestStore(t)

	id1, existed, err := s.UpsertKnowledgeDocument("verdi", "a.md", "hash1")
	require.NoError(t, err)
	assert.False(t, existed)

	id2, existed, err := s.UpsertKnowledgeDocument("verdi", "b.md", "hash1")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, id1, id2)

	_, existed, err = s.UpsertKnowledgeDocument("altro", "a.md", "hash1")
	require.NoError(t, err)
	assert.False(t, existed, "same hash under a different parent is a new document")
}

func TestKnowledgeChunkSearch(t *testing.T) {
	s := newTestStore(t)

	docID, _, err := s.UpsertKnowledgeDocument("verdi", "kb.md", "hash1")
	require.NoError(t, err)

	contents := []string{
		"gestione campagne pubblicitarie per ecommerce",
		"ricette di cucina regionale",
		"ottimizzazione campagne e advertising digitale",
	}
	vectors := make([][]float32, len(contents))
	for i, content := range contents {
		vectors[i] = embedding.HashVector(content, 64)
	}
	require.NoError(t, s.InsertKnowledgeChunks(docID, "verdi", contents, vectors))

	query := embedding.HashVector("campagne advertising ecommerce", 64)
	hits, err := s.SearchKnowledgeChunks("verdi", query, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Similarity, hits[1].Similarity)

	// Other parents see nothing.
	hits, err = s.SearchKnowledgeChunks("altro", query, 2)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestKnowledgeChunkSearchSkipsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)

	docID, _, err := s.UpsertKnowledgeDocument("verdi", "kb.md", "hash1")
	require.NoError(t, err)
	require.NoError(t, s.InsertKnowledgeChunks(docID, "verdi",
		[]string{"testo"}, [][]float32{embedding.HashVector("testo", 32)}))

	hits, err := s.SearchKnowledgeChunks("verdi", embedding.HashVector("testo", 64), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestInsertKnowledgeChunksCountMismatch(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertKnowledgeChunks(1, "verdi", []string{"a", "b"}, [][]float32{{1}})
	assert.Error(t, err)
}

func TestCampaignLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateCampaign("verdi", "leads.csv", "RUNNING")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.UpdateCampaignStatus(id, "AGGREGATING"))

	result := types.CampaignCompanyResult{
		CampaignID:         id,
		ParentSlug:         "verdi",
		Company:            types.LeadCompany{CompanyKey: "rossi-srl", CompanyName: "Rossi Srl"},
		RecommendedVariant: "A",
	}
	require.NoError(t, s.InsertCampaignRecord(id, 0, "mario@rossi.it", "rossi-srl", types.StatusOK, result))

	records, err := s.ListCampaignRecords(id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rossi-srl", records[0].Company.CompanyKey)

	summary := types.CampaignSummary{CampaignID: id, ParentSlug: "verdi", Status: "COMPLETED", RowsTotal: 1}
	require.NoError(t, s.FinalizeCampaign(id, summary))

	loaded, err := s.GetCampaignSummary(id)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", loaded.Status)
	assert.Equal(t, 1, loaded.RowsTotal)
}

func TestFinalizeCampaignOnlyOnce(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateCampaign("verdi", "leads.csv", "RUNNING")
	require.NoError(t, err)

	summary := types.CampaignSummary{CampaignID: id, Status: "COMPLETED"}
	require.NoError(t, s.FinalizeCampaign(id, summary))
	assert.Error(t, s.FinalizeCampaign(id, summary))
}

func TestCampaignRecordsOrderedByRow(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateCampaign("verdi", "leads.csv", "RUNNING")
	require.NoError(t, err)

	for _, idx := range []int{2, 0, 1} {
		result := types.CampaignCompanyResult{CampaignID: id, RecommendedVariant: string(rune('A' + idx))}
		require.NoError(t, s.InsertCampaignRecord(id, idx, "", "", types.StatusOK, result))
	}

	records, err := s.ListCampaignRecords(id)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "A", records[0].RecommendedVariant)
	assert.Equal(t, "C", records[2].RecommendedVariant)
}

func TestGetCampaignSummaryNotFinalized(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateCampaign("verdi", "leads.csv", "RUNNING")
	require.NoError(t, err)

	_, err = s.GetCampaignSummary(id)
	assert.Error(t, err)
}

func TestListCampaigns(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateCampaign("verdi", "uno.csv", "RUNNING")
	require.NoError(t, err)
	_, err = s.CreateCampaign("verdi", "due.csv", "RUNNING")
	require.NoError(t, err)

	infos, err := s.ListCampaigns(10)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestPurgeExpiredKeepsRecentAndKnowledge(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateCampaign("verdi", "leads.csv", "RUNNING")
	require.NoError(t, err)
	docID, _, err := s.UpsertKnowledgeDocument("verdi", "kb.md", "hash1")
	require.NoError(t, err)
	require.NoError(t, s.InsertKnowledgeChunks(docID, "verdi",
		[]string{"testo"}, [][]float32{embedding.HashVector("testo", 32)}))

	purged, err := s.PurgeExpired(90)
	require.NoError(t, err)
	assert.Zero(t, purged)

	infos, err := s.ListCampaigns(10)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)

	count, err := s.CountKnowledgeChunks("verdi")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertParentProfile(testProfile("verdi")))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["parent_profiles"])
	assert.Equal(t, int64(0), stats["campaigns"])
}
