package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"emailgenius/internal/logging"
	"emailgenius/internal/types"
)

// ========== Parent Profiles ==========

// ProfileInfo is a listing row for stored parent profiles.
type ProfileInfo struct {
	Slug        string
	CompanyName string
	IsActive    bool
	UpdatedAt   string
}

// UpsertParentProfile stores or replaces a profile keyed by slug.
func (s *LocalStore) UpsertParentProfile(profile types.ParentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.Slug == "" {
		return fmt.Errorf("parent profile has no slug")
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO parent_profiles (slug, data, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(slug) DO UPDATE SET
		 data = excluded.data,
		 updated_at = CURRENT_TIMESTAMP`,
		profile.Slug, string(data),
	)
	if err != nil {
		return err
	}

	logging.Store("Upserted parent profile %s", profile.Slug)
	return nil
}

// GetParentProfile loads one profile by slug.
func (s *LocalStore) GetParentProfile(slug string) (*types.ParentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow("SELECT data FROM parent_profiles WHERE slug = ?", slug).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("parent profile not found: %s", slug)
	}
	if err != nil {
		return nil, err
	}

	var profile types.ParentProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", slug, err)
	}
	return &profile, nil
}

// ListParentProfiles returns all stored profiles in slug order.
func (s *LocalStore) ListParentProfiles() ([]ProfileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT slug, data, is_active, updated_at FROM parent_profiles ORDER BY slug")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []ProfileInfo
	for rows.Next() {
		var info ProfileInfo
		var data string
		var active int
		if err := rows.Scan(&info.Slug, &data, &active, &info.UpdatedAt); err != nil {
			continue
		}
		info.IsActive = active != 0

		var profile types.ParentProfile
		if json.Unmarshal([]byte(data), &profile) == nil {
			info.CompanyName = profile.CompanyName
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// SetActiveParentProfile marks one profile as active, clearing any
// previous active flag.
func (s *LocalStore) SetActiveParentProfile(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM parent_profiles WHERE slug = ?", slug).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("parent profile not found: %s", slug)
	}

	if _, err := s.db.Exec("UPDATE parent_profiles SET is_active = 0 WHERE is_active = 1"); err != nil {
		return err
	}
	_, err := s.db.Exec("UPDATE parent_profiles SET is_active = 1, updated_at = CURRENT_TIMESTAMP WHERE slug = ?", slug)
	if err == nil {
		logging.Store("Activated parent profile %s", slug)
	}
	return err
}

// GetActiveParentProfile returns the profile marked active, or an error
// when none is.
func (s *LocalStore) GetActiveParentProfile() (*types.ParentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow("SELECT data FROM parent_profiles WHERE is_active = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no active parent profile")
	}
	if err != nil {
		return nil, err
	}

	var profile types.ParentProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
