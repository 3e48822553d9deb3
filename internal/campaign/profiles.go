// Package campaign orchestrates a full outreach run: preflight, cost
// check, per-item generation, aggregation and CSV export.
package campaign

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"emailgenius/internal/leads"
	"emailgenius/internal/types"
)

var requiredProfileKeys = []string{
	"company_name",
	"tone",
	"offer_catalog",
	"icp",
	"proof_points",
	"objections",
	"cta_policy",
	"no_go_claims",
	"compliance_notes",
}

const defaultCTAPolicy = "call conoscitiva 20-30 min"

// LoadParentProfileFile reads and validates a parent profile YAML.
// The slug falls back to the profile's own slug field, then to a slug
// of the company name.
func LoadParentProfileFile(path, slugOverride string) (*types.ParentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parent profile must be a YAML object")
	}

	var missing []string
	for _, key := range requiredProfileKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required profile keys: %s", strings.Join(missing, ", "))
	}

	var profile types.ParentProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if profile.CTAPolicy == "" {
		profile.CTAPolicy = defaultCTAPolicy
	}

	slug := slugOverride
	if slug == "" {
		slug = profile.Slug
	}
	if slug == "" {
		slug = profile.CompanyName
	}
	profile.Slug = leads.Slugify(slug)

	if err := validateParentProfile(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func validateParentProfile(profile *types.ParentProfile) error {
	switch {
	case strings.TrimSpace(profile.CompanyName) == "":
		return fmt.Errorf("company_name cannot be empty")
	case strings.TrimSpace(profile.Tone) == "":
		return fmt.Errorf("tone cannot be empty")
	case len(profile.OfferCatalog) == 0:
		return fmt.Errorf("offer_catalog cannot be empty")
	case len(profile.ICP) == 0:
		return fmt.Errorf("icp cannot be empty")
	case strings.TrimSpace(profile.CTAPolicy) == "":
		return fmt.Errorf("cta_policy cannot be empty")
	}
	return nil
}
