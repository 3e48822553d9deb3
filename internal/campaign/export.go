package campaign

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emailgenius/internal/logging"
	"emailgenius/internal/store"
	"emailgenius/internal/types"
)

var approvalColumnsAB = []string{
	"campaign_id",
	"parent_slug",
	"company_name",
	"contact_name",
	"contact_title",
	"contact_email",
	"variant_a_subject",
	"variant_a_body",
	"variant_b_subject",
	"variant_b_body",
	"recommended_variant",
	"final_subject",
	"final_body",
	"selected_variant",
	"generation_status",
	"generation_warning",
	"error_code",
	"evidence_summary",
	"risk_flags",
	"status",
	"reviewer_notes",
	"approved_variant",
	"updated_at",
}

var approvalColumnsABC = []string{
	"campaign_id",
	"parent_slug",
	"company_name",
	"contact_name",
	"contact_title",
	"contact_email",
	"variant_a_subject",
	"variant_a_body",
	"variant_b_subject",
	"variant_b_body",
	"variant_c_subject",
	"variant_c_body",
	"recommended_variant",
	"final_subject",
	"final_body",
	"selected_variant",
	"generation_status",
	"generation_warning",
	"error_code",
	"evidence_summary",
	"risk_flags",
	"status",
	"reviewer_notes",
	"approved_variant",
	"updated_at",
}

// ApprovalColumns returns the review sheet column set for the schema.
func ApprovalColumns(outputSchema string) []string {
	if strings.ToLower(outputSchema) == "abc" {
		return approvalColumnsABC
	}
	return approvalColumnsAB
}

// MergeColumns appends generated columns after the input columns,
// dropping duplicates while keeping first-seen order.
func MergeColumns(inputColumns, generatedColumns []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, column := range append(append([]string{}, inputColumns...), generatedColumns...) {
		if seen[column] {
			continue
		}
		seen[column] = true
		out = append(out, column)
	}
	return out
}

// WriteCSV writes rows with the given column order. Missing cells are
// empty strings.
func WriteCSV(path string, rows []map[string]string, columns []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	logging.Export("Wrote %d rows to %s", len(rows), path)
	return nil
}

// ExportCampaign re-exports a stored campaign to CSV using the approval
// schema. With schema "auto" the run's own output schema is used.
func ExportCampaign(localStore *store.LocalStore, campaignID, outputPath, outputSchema string) error {
	records, err := localStore.ListCampaignRecords(campaignID)
	if err != nil {
		return err
	}

	schema := strings.ToLower(outputSchema)
	if schema != "ab" && schema != "abc" {
		schema = "ab"
		if summary, err := localStore.GetCampaignSummary(campaignID); err == nil {
			if s := strings.ToLower(summary.OutputSchema); s == "ab" || s == "abc" {
				schema = s
			}
		}
	}

	columns := ApprovalColumns(schema)
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, recordToExportRow(record, schema))
	}
	return WriteCSV(outputPath, rows, columns)
}

// recordToExportRow rebuilds the approval row from a persisted result.
// Selection and status come straight from the record, so a re-export
// reproduces what the run decided. Records written before selection
// was persisted fall back to the recommended variant.
func recordToExportRow(result types.CampaignCompanyResult, outputSchema string) map[string]string {
	byName := variantsByName(result.Variants)
	selected := strings.ToUpper(result.SelectedVariant)
	if selected == "" {
		selected = strings.ToUpper(result.RecommendedVariant)
	}
	if selected == "" {
		selected = "A"
	}
	status := result.GenerationStatus
	if status == "" {
		status = types.StatusOK
	}

	row := map[string]string{
		"campaign_id":         result.CampaignID,
		"parent_slug":         result.ParentSlug,
		"company_name":        result.Company.CompanyName,
		"variant_a_subject":   byName["A"].Subject,
		"variant_a_body":      byName["A"].Body,
		"variant_b_subject":   byName["B"].Subject,
		"variant_b_body":      byName["B"].Body,
		"recommended_variant": result.RecommendedVariant,
		"final_subject":       byName[selected].Subject,
		"final_body":          byName[selected].Body,
		"selected_variant":    selected,
		"generation_status":   status,
		"generation_warning":  result.GenerationWarning,
		"error_code":          result.ErrorCode,
		"evidence_summary":    joinLimited(result.Dossier.Evidence, 5),
		"risk_flags":          strings.Join(result.RiskFlags, "; "),
		"status":              result.Approval.Status,
		"reviewer_notes":      result.Approval.Notes,
		"approved_variant":    result.Approval.ApprovedVariant,
		"updated_at":          result.Approval.UpdatedAt,
	}
	if result.Contact != nil {
		row["contact_name"] = result.Contact.FullName
		row["contact_title"] = result.Contact.Title
		row["contact_email"] = result.Contact.Email
	}
	if outputSchema == "abc" {
		row["variant_c_subject"] = byName["C"].Subject
		row["variant_c_body"] = byName["C"].Body
	}
	return row
}

func variantsByName(variants []types.DraftEmailVariant) map[string]types.DraftEmailVariant {
	out := make(map[string]types.DraftEmailVariant, len(variants))
	for _, variant := range variants {
		out[strings.ToUpper(variant.Variant)] = variant
	}
	return out
}

func joinLimited(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, "; ")
}

func hasFlagString(flags []string, target string) bool {
	for _, flag := range flags {
		if flag == target {
			return true
		}
	}
	return false
}
