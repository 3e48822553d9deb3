// Package store persists parent profiles, knowledge documents with
// their chunk embeddings, and campaign runs in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"emailgenius/internal/logging"
)

// LocalStore is the single SQLite-backed store for the engine.
// All access goes through its mutex; the database file lives under the
// configured home directory.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore opens (creating if needed) the SQLite database at path
// and applies the schema.
func NewLocalStore(path string) (*LocalStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Opened local store at %s (driver=%s)", path, driverName)
	return store, nil
}

func (s *LocalStore) initialize() error {
	profilesTable := `
	CREATE TABLE IF NOT EXISTS parent_profiles (
		slug TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		is_active INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	documentsTable := `
	CREATE TABLE IF NOT EXISTS knowledge_documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_slug TEXT NOT NULL,
		path TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(parent_slug, content_hash)
	);
	CREATE INDEX IF NOT EXISTS idx_docs_parent ON knowledge_documents(parent_slug);
	`

	chunksTable := `
	CREATE TABLE IF NOT EXISTS knowledge_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		parent_slug TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_parent ON knowledge_chunks(parent_slug);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON knowledge_chunks(document_id);
	`

	campaignsTable := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		parent_slug TEXT NOT NULL,
		leads_file TEXT,
		status TEXT NOT NULL,
		summary TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_campaigns_parent ON campaigns(parent_slug);
	`

	recordsTable := `
	CREATE TABLE IF NOT EXISTS campaign_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		email TEXT,
		company_key TEXT,
		status TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_records_campaign ON campaign_records(campaign_id);
	`

	for _, table := range []string{profilesTable, documentsTable, chunksTable, campaignsTable, recordsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// Stats returns per-table row counts.
func (s *LocalStore) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := []string{"parent_profiles", "knowledge_documents", "knowledge_chunks", "campaigns", "campaign_records"}

	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			continue
		}
		stats[table] = count
	}

	return stats, nil
}
