package leads

import (
	"emailgenius/internal/logging"
)

// DefaultRequiredFields are the canonical columns a row must carry to
// enter the pipeline. A missing website does not skip the row: those
// rows take the template-only path downstream.
var DefaultRequiredFields = []string{"Email", "First Name", "Company Name"}

// PreflightRow pairs one input row with its validation verdict.
type PreflightRow struct {
	RowIndex        int
	Row             map[string]string
	RawRow          map[string]string
	MissingRequired []string
	IsValid         bool
}

// PreflightResult is the validation summary for a whole leads file.
type PreflightResult struct {
	RowsTotal      int
	RowsValid      int
	RowsSkipped    int
	RequiredFields []string
	Rows           []PreflightRow
	InputColumns   []string
	HeaderMapping  map[string]string
}

// Preflight validates every canonical row against the required field
// set. Rows stay in input order; invalid rows are kept so the export
// can report them as SKIPPED_VALIDATION.
func Preflight(data *CSVReadResult, requiredFields []string) *PreflightResult {
	if len(requiredFields) == 0 {
		requiredFields = DefaultRequiredFields
	}

	result := &PreflightResult{
		RowsTotal:      len(data.Rows),
		RequiredFields: requiredFields,
		InputColumns:   data.InputColumns,
		HeaderMapping:  data.HeaderMapping,
	}

	for i, row := range data.Rows {
		var missing []string
		for _, field := range requiredFields {
			if row[field] == "" {
				missing = append(missing, field)
			}
		}
		entry := PreflightRow{
			RowIndex:        i,
			Row:             row,
			RawRow:          data.RawRows[i],
			MissingRequired: missing,
			IsValid:         len(missing) == 0,
		}
		if entry.IsValid {
			result.RowsValid++
		} else {
			result.RowsSkipped++
			logging.CampaignWarn("Row %d skipped: missing %v", i+1, missing)
		}
		result.Rows = append(result.Rows, entry)
	}

	logging.Campaign("Preflight: %d rows, %d valid, %d skipped", result.RowsTotal, result.RowsValid, result.RowsSkipped)
	return result
}
