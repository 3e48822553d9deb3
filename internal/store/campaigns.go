package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"emailgenius/internal/logging"
	"emailgenius/internal/types"
)

// ========== Campaigns ==========

// CampaignInfo is a listing row for stored campaigns.
type CampaignInfo struct {
	ID          string
	ParentSlug  string
	LeadsFile   string
	Status      string
	CreatedAt   string
	CompletedAt string
}

// CreateCampaign registers a new run and returns its id.
func (s *LocalStore) CreateCampaign(parentSlug, leadsFile, status string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO campaigns (id, parent_slug, leads_file, status) VALUES (?, ?, ?, ?)",
		id, parentSlug, leadsFile, status,
	)
	if err != nil {
		return "", err
	}

	logging.Store("Created campaign %s for %s", id, parentSlug)
	return id, nil
}

// UpdateCampaignStatus moves a campaign through its lifecycle states.
func (s *LocalStore) UpdateCampaignStatus(campaignID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("UPDATE campaigns SET status = ? WHERE id = ?", status, campaignID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("campaign not found: %s", campaignID)
	}
	return nil
}

// FinalizeCampaign stores the summary exactly once and stamps the
// completion time. A second finalize is rejected.
func (s *LocalStore) FinalizeCampaign(campaignID string, summary types.CampaignSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing sql.NullString
	err := s.db.QueryRow("SELECT summary FROM campaigns WHERE id = ?", campaignID).Scan(&existing)
	if err == sql.ErrNoRows {
		return fmt.Errorf("campaign not found: %s", campaignID)
	}
	if err != nil {
		return err
	}
	if existing.Valid && existing.String != "" {
		return fmt.Errorf("campaign already finalized: %s", campaignID)
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		"UPDATE campaigns SET status = ?, summary = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?",
		summary.Status, string(data), campaignID,
	)
	if err == nil {
		logging.Store("Finalized campaign %s (%s)", campaignID, summary.Status)
	}
	return err
}

// GetCampaignSummary loads the finalized summary of a run.
func (s *LocalStore) GetCampaignSummary(campaignID string) (*types.CampaignSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data sql.NullString
	err := s.db.QueryRow("SELECT summary FROM campaigns WHERE id = ?", campaignID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("campaign not found: %s", campaignID)
	}
	if err != nil {
		return nil, err
	}
	if !data.Valid || data.String == "" {
		return nil, fmt.Errorf("campaign not finalized: %s", campaignID)
	}

	var summary types.CampaignSummary
	if err := json.Unmarshal([]byte(data.String), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListCampaigns returns runs newest first.
func (s *LocalStore) ListCampaigns(limit int) ([]CampaignInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, parent_slug, COALESCE(leads_file, ''), status, created_at, COALESCE(completed_at, '')
		 FROM campaigns ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []CampaignInfo
	for rows.Next() {
		var info CampaignInfo
		if err := rows.Scan(&info.ID, &info.ParentSlug, &info.LeadsFile, &info.Status, &info.CreatedAt, &info.CompletedAt); err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// InsertCampaignRecord persists one processed item outcome.
func (s *LocalStore) InsertCampaignRecord(campaignID string, rowIndex int, email, companyKey, status string, result types.CampaignCompanyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		"INSERT INTO campaign_records (campaign_id, row_index, email, company_key, status, payload) VALUES (?, ?, ?, ?, ?, ?)",
		campaignID, rowIndex, email, companyKey, status, string(payload),
	)
	return err
}

// ListCampaignRecords loads all item outcomes of a run in row order.
func (s *LocalStore) ListCampaignRecords(campaignID string) ([]types.CampaignCompanyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT payload FROM campaign_records WHERE campaign_id = ? ORDER BY row_index",
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.CampaignCompanyResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var result types.CampaignCompanyResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// CountCampaignRecordStatuses tallies a run's persisted records by
// generation status.
func (s *LocalStore) CountCampaignRecordStatuses(campaignID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT status, COUNT(*) FROM campaign_records WHERE campaign_id = ? GROUP BY status",
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			continue
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// PurgeExpired deletes campaigns (and their records) older than the
// retention window. Knowledge is never purged here.
func (s *LocalStore) PurgeExpired(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := fmt.Sprintf("-%d days", retentionDays)
	if _, err := s.db.Exec(
		`DELETE FROM campaign_records WHERE campaign_id IN
		 (SELECT id FROM campaigns WHERE created_at < datetime('now', ?))`,
		cutoff,
	); err != nil {
		return 0, err
	}

	result, err := s.db.Exec("DELETE FROM campaigns WHERE created_at < datetime('now', ?)", cutoff)
	if err != nil {
		return 0, err
	}
	purged, _ := result.RowsAffected()
	if purged > 0 {
		logging.Store("Purged %d campaigns older than %d days", purged, retentionDays)
	}
	return purged, nil
}
