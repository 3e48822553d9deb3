package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"emailgenius/internal/embedding"
	"emailgenius/internal/logging"
)

// ========== Knowledge Documents and Chunks ==========

// KnowledgeChunk is one stored chunk with its embedding.
type KnowledgeChunk struct {
	ID         int64
	DocumentID int64
	ParentSlug string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// ChunkHit is a chunk scored against a query vector.
type ChunkHit struct {
	Chunk      KnowledgeChunk
	Similarity float64
}

// UpsertKnowledgeDocument registers a document by content hash. Returns
// the document id and whether it already existed; re-ingesting the same
// content is a no-op for the caller.
func (s *LocalStore) UpsertKnowledgeDocument(parentSlug, path, contentHash string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM knowledge_documents WHERE parent_slug = ? AND content_hash = ?",
		parentSlug, contentHash,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, err
	}

	result, err := s.db.Exec(
		"INSERT INTO knowledge_documents (parent_slug, path, content_hash) VALUES (?, ?, ?)",
		parentSlug, path, contentHash,
	)
	if err != nil {
		return 0, false, err
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	logging.Store("Registered knowledge document %d for %s (%s)", id, parentSlug, path)
	return id, false, nil
}

// InsertKnowledgeChunks stores the chunks of one document. Embeddings
// are serialized as JSON arrays.
func (s *LocalStore) InsertKnowledgeChunks(documentID int64, parentSlug string, contents []string, embeddings [][]float32) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(contents), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO knowledge_chunks (document_id, parent_slug, chunk_index, content, embedding) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, content := range contents {
		vector, err := json.Marshal(embeddings[i])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(documentID, parentSlug, i, content, string(vector)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logging.Store("Inserted %d chunks for document %d", len(contents), documentID)
	return nil
}

// SearchKnowledgeChunks ranks a parent's chunks by cosine similarity
// against the query vector and returns the top K.
func (s *LocalStore) SearchKnowledgeChunks(parentSlug string, query []float32, topK int) ([]ChunkHit, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, document_id, parent_slug, chunk_index, content, embedding FROM knowledge_chunks WHERE parent_slug = ?",
		parentSlug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		var chunk KnowledgeChunk
		var vectorJSON sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ParentSlug, &chunk.ChunkIndex, &chunk.Content, &vectorJSON); err != nil {
			continue
		}
		if vectorJSON.Valid {
			json.Unmarshal([]byte(vectorJSON.String), &chunk.Embedding)
		}
		similarity, err := embedding.CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			// Dimension mismatch, usually from an engine change.
			continue
		}
		hits = append(hits, ChunkHit{Chunk: chunk, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// CountKnowledgeChunks reports how many chunks a parent has ingested.
func (s *LocalStore) CountKnowledgeChunks(parentSlug string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM knowledge_chunks WHERE parent_slug = ?", parentSlug).Scan(&count)
	return count, err
}

// DeleteKnowledgeDocument removes a document and its chunks.
func (s *LocalStore) DeleteKnowledgeDocument(documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM knowledge_chunks WHERE document_id = ?", documentID); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM knowledge_documents WHERE id = ?", documentID)
	return err
}
