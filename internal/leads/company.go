package leads

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"emailgenius/internal/types"
)

var (
	slugSpacesRe  = regexp.MustCompile(`\s+`)
	slugAllowedRe = regexp.MustCompile(`[^a-z0-9-]+`)
)

// Slugify converts free text into a stable lowercase key. Empty or
// fully-symbolic input slugs to "item".
func Slugify(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = slugSpacesRe.ReplaceAllString(slug, "-")
	slug = slugAllowedRe.ReplaceAllString(slug, "")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "item"
	}
	return slug
}

// CleanURL returns the URL if it carries an http(s) scheme and a host,
// empty string otherwise. Scheme-less values like "acme.it" are not
// trusted.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}
	return raw
}

// CompanyKey derives the grouping key for a row: slug of the cleaned
// company name, else the website host, else a slug of whatever company
// name is present.
func CompanyKey(row map[string]string) string {
	if name := row["Cleaned Company Name"]; name != "" {
		return Slugify(name)
	}
	if website := CleanURL(row["Company Website Full"]); website != "" {
		if parsed, err := url.Parse(website); err == nil && parsed.Host != "" {
			return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
		}
	}
	name := row["Company Name"]
	if name == "" {
		name = "azienda"
	}
	return Slugify(name)
}

// GroupRowsByCompany buckets valid preflight rows by company key,
// preserving first-seen key order.
func GroupRowsByCompany(rows []PreflightRow) ([]string, map[string][]PreflightRow) {
	var order []string
	groups := make(map[string][]PreflightRow)
	for _, entry := range rows {
		if !entry.IsValid {
			continue
		}
		key := CompanyKey(entry.Row)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry)
	}
	return order, groups
}

// BuildCompanyAndContacts folds one company group into a LeadCompany
// plus its scored contacts. Company-level fields take the first
// non-empty value across the group.
func BuildCompanyAndContacts(key string, rows []PreflightRow) (types.LeadCompany, []types.LeadContact) {
	company := types.LeadCompany{CompanyKey: key}
	var contacts []types.LeadContact

	for _, entry := range rows {
		row := entry.Row
		if company.CompanyName == "" {
			if name := row["Cleaned Company Name"]; name != "" {
				company.CompanyName = name
			} else {
				company.CompanyName = row["Company Name"]
			}
		}
		if company.Website == "" {
			company.Website = CleanURL(row["Company Website Full"])
		}
		if company.LinkedinCompany == "" {
			company.LinkedinCompany = row["Company LinkedIn Link"]
		}
		if company.Industry == "" {
			company.Industry = row["Industry"]
		}
		if company.EmployeeCount == 0 {
			company.EmployeeCount = parseIntField(row["Employee Count"])
		}
		if company.Location == "" {
			company.Location = buildLocation(row)
		}
		if company.Keywords == "" {
			company.Keywords = row["Company Keywords"]
		}
		if company.Tech == "" {
			company.Tech = row["Company Technologies"]
		}
		if company.FoundedYear == 0 {
			company.FoundedYear = parseIntField(row["Company Founded Year"])
		}
		if description := row["Company Short Description"]; description != "" {
			evidence := compactEvidence(description)
			if !containsString(company.Evidence, evidence) {
				company.Evidence = append(company.Evidence, evidence)
			}
		}

		contacts = append(contacts, BuildContact(row))
	}

	SelectPrimaryContact(contacts)
	return company, contacts
}

// BuildContact maps a canonical row to a scored contact.
func BuildContact(row map[string]string) types.LeadContact {
	contact := types.LeadContact{
		FullName:       row["Full Name"],
		Title:          row["Title"],
		Seniority:      row["Seniority"],
		Email:          row["Email"],
		LinkedinPerson: row["LinkedIn Link"],
		QualityFlag:    row["MillionVerifier Status"],
		Raw:            row,
	}
	contact.Score = ScoreContact(row)
	return contact
}

// ===== CONTACT SCORING =====

var seniorityRank = map[string]float64{
	"c_suite":   50,
	"founder":   45,
	"owner":     42,
	"executive": 38,
	"director":  34,
	"manager":   28,
	"mid":       16,
	"entry":     10,
}

// titleBoosts are cumulative substring matches on the lowercased title.
var titleBoosts = []struct {
	needle string
	boost  float64
}{
	{"ceo", 20},
	{"chief executive officer", 20},
	{"amministratore delegato", 20},
	{"founder", 18},
	{"general manager", 16},
	{"cfo", 14},
	{"owner", 13},
}

var completenessFields = []string{"Email", "LinkedIn Link", "Headline", "Title", "Seniority"}

// ScoreContact computes the deterministic lead-quality score used to
// pick one primary contact per company.
func ScoreContact(row map[string]string) float64 {
	score := 0.0

	seniority := strings.ToLower(strings.TrimSpace(row["Seniority"]))
	if rank, ok := seniorityRank[seniority]; ok {
		score += rank
	} else if seniority != "" {
		score += 12
	}

	title := strings.ToLower(row["Title"])
	for _, boost := range titleBoosts {
		if strings.Contains(title, boost.needle) {
			score += boost.boost
		}
	}

	switch strings.ToLower(strings.TrimSpace(row["MillionVerifier Status"])) {
	case "good":
		score += 10
	case "risky":
		score -= 5
	}

	complete := 0
	for _, field := range completenessFields {
		if row[field] != "" {
			complete++
		}
	}
	score += float64(complete) * 1.5

	// Round to 2 decimals so equal contacts compare equal across runs.
	return math.Round(score*100) / 100
}

// SelectPrimaryContact marks the highest-scoring contact as primary.
// Ties keep the earlier row, matching input order.
func SelectPrimaryContact(contacts []types.LeadContact) *types.LeadContact {
	if len(contacts) == 0 {
		return nil
	}
	best := 0
	for i := range contacts {
		contacts[i].IsPrimary = false
		if contacts[i].Score > contacts[best].Score {
			best = i
		}
	}
	contacts[best].IsPrimary = true
	return &contacts[best]
}

func parseIntField(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func buildLocation(row map[string]string) string {
	var parts []string
	for _, field := range []string{"Lead City", "Lead State", "Lead Country"} {
		if value := row[field]; value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, ", ")
}

func compactEvidence(text string) string {
	compact := slugSpacesRe.ReplaceAllString(strings.TrimSpace(text), " ")
	const limit = 280
	if len(compact) > limit {
		return fmt.Sprintf("%s...", compact[:limit])
	}
	return compact
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
