// Package types holds the shared domain model for the campaign engine.
// Kept dependency-free so every other package can import it.
package types

import "time"

// ParentProfile is the sender-side identity a campaign speaks for: offer
// catalog, tone, compliance constraints and the seed outreach template used
// as the rewrite-budget baseline.
type ParentProfile struct {
	Slug                 string   `yaml:"slug" json:"slug"`
	CompanyName          string   `yaml:"company_name" json:"company_name"`
	Tone                 string   `yaml:"tone" json:"tone"`
	OfferCatalog         []string `yaml:"offer_catalog" json:"offer_catalog"`
	ICP                  []string `yaml:"icp" json:"icp"`
	ProofPoints          []string `yaml:"proof_points" json:"proof_points"`
	Objections           []string `yaml:"objections" json:"objections"`
	CTAPolicy            string   `yaml:"cta_policy" json:"cta_policy"`
	NoGoClaims           []string `yaml:"no_go_claims" json:"no_go_claims"`
	ComplianceNotes      []string `yaml:"compliance_notes" json:"compliance_notes"`
	SenderName           string   `yaml:"sender_name" json:"sender_name"`
	SenderCompany        string   `yaml:"sender_company" json:"sender_company"`
	SenderPhone          string   `yaml:"sender_phone" json:"sender_phone"`
	BookingLink          string   `yaml:"booking_link" json:"booking_link"`
	OutreachSeedTemplate string   `yaml:"outreach_seed_template" json:"outreach_seed_template"`
}

// LeadCompany is the company-level view of one or more lead rows sharing a
// company key.
type LeadCompany struct {
	CompanyKey      string `json:"company_key"`
	CompanyName     string `json:"company_name"`
	Website         string `json:"website,omitempty"`
	LinkedinCompany string `json:"linkedin_company,omitempty"`
	Industry        string `json:"industry,omitempty"`
	EmployeeCount   int    `json:"employee_count,omitempty"`
	Location        string `json:"location,omitempty"`
	Keywords        string `json:"keywords,omitempty"`
	Tech            string `json:"tech,omitempty"`
	FoundedYear     int    `json:"founded_year,omitempty"`

	Evidence []string `json:"evidence,omitempty"`
}

// LeadContact is one person at a LeadCompany. Score is the deterministic
// lead-quality score used to pick the primary contact of a company group.
type LeadContact struct {
	FullName       string  `json:"full_name"`
	Title          string  `json:"title,omitempty"`
	Seniority      string  `json:"seniority,omitempty"`
	Email          string  `json:"email,omitempty"`
	LinkedinPerson string  `json:"linkedin_person,omitempty"`
	QualityFlag    string  `json:"quality_flag,omitempty"`
	Score          float64 `json:"score"`
	IsPrimary      bool    `json:"is_primary_contact"`

	Raw map[string]string `json:"-"`
}

// NewsItem is one discovered news hit about a target company.
type NewsItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EnrichmentDossier is the evidence bundle about a target company, produced
// by the enrichment collaborator and treated as read-only by generation.
type EnrichmentDossier struct {
	SiteSummary           string     `json:"site_summary"`
	PainHypotheses        []string   `json:"pain_hypotheses"`
	OpportunityHypotheses []string   `json:"opportunity_hypotheses"`
	Evidence              []string   `json:"evidence"`
	Sources               []string   `json:"sources"`
	NewsItems             []NewsItem `json:"news_items,omitempty"`
}

// DraftEmailVariant is one candidate email identified by a letter id.
// RiskFlags accumulate claim-guard and quality-gate findings; the struct is
// immutable once the gateway hands it out.
type DraftEmailVariant struct {
	Variant    string   `json:"variant"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	CTA        string   `json:"cta"`
	RiskFlags  []string `json:"risk_flags"`
	Confidence float64  `json:"confidence"`
}

// Row generation statuses. Every exported row carries exactly one.
const (
	StatusOK                = "OK"
	StatusFailedCopyGuard   = "FAILED_COPY_GUARD"
	StatusError             = "ERROR"
	StatusSkippedValidation = "SKIPPED_VALIDATION"
)

// ApprovalRecord tracks the human review state of a generated row.
type ApprovalRecord struct {
	Status          string `json:"status"` // PENDING, APPROVED, REJECTED
	Notes           string `json:"notes,omitempty"`
	ApprovedVariant string `json:"approved_variant,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

// CampaignCompanyResult is the persisted outcome for one processed item.
// Selection and status are recorded at generation time so re-exports
// reproduce the run's decisions instead of re-deriving them.
type CampaignCompanyResult struct {
	CampaignID         string            `json:"campaign_id"`
	ParentSlug         string            `json:"parent_slug"`
	Company            LeadCompany       `json:"company"`
	Contact            *LeadContact      `json:"contact,omitempty"`
	Dossier            EnrichmentDossier `json:"dossier"`
	Variants           []DraftEmailVariant `json:"variants"`
	RecommendedVariant string            `json:"recommended_variant"`
	SelectedVariant    string            `json:"selected_variant"`
	GenerationStatus   string            `json:"generation_status"`
	GenerationWarning  string            `json:"generation_warning,omitempty"`
	ErrorCode          string            `json:"error_code,omitempty"`
	Approval           ApprovalRecord    `json:"approval"`
	RiskFlags          []string          `json:"risk_flags"`
}

// CampaignSummary holds the final counters of a completed run. Finalized
// exactly once; immutable afterwards.
type CampaignSummary struct {
	CampaignID       string  `json:"campaign_id"`
	ParentSlug       string  `json:"parent_slug"`
	LeadsFile        string  `json:"leads_file"`
	Status           string  `json:"status"`
	CompaniesTotal   int     `json:"companies_total"`
	GeneratedTotal   int     `json:"generated_total"`
	WarningsTotal    int     `json:"warnings_total"`
	RecipientMode    string  `json:"recipient_mode"`
	VariantMode      string  `json:"variant_mode"`
	OutputSchema     string  `json:"output_schema"`
	LLMPolicy        string  `json:"llm_policy"`
	RowsTotal        int     `json:"rows_total"`
	RowsValid        int     `json:"rows_valid"`
	RowsSkipped      int     `json:"rows_skipped"`
	RowsGeneratedOK  int     `json:"rows_generated_ok"`
	RowsFailed       int     `json:"rows_failed"`
	EstimatedCostEUR float64 `json:"estimated_cost_eur"`
	ActualCostEUR    float64 `json:"actual_cost_eur"`
}

// UTCNowISO returns the current UTC time in RFC3339, the timestamp format
// used in exports and persisted records.
func UTCNowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
