// Package leads handles CSV ingestion of lead lists: header alias
// canonicalization, row preflight against required fields, company
// grouping and deterministic contact scoring.
package leads

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"emailgenius/internal/logging"
)

// headerAlias maps one canonical column to the spellings seen in
// exports from the common lead tools.
type headerAlias struct {
	canonical string
	aliases   []string
}

var canonicalHeaderAliases = []headerAlias{
	{"First Name", []string{"First Name", "firstName", "firstname", "first_name"}},
	{"Last Name", []string{"Last Name", "lastName", "lastname", "last_name"}},
	{"Full Name", []string{"Full Name", "fullName", "fullname", "full_name"}},
	{"Title", []string{"Title", "jobTitle", "job_title", "role"}},
	{"Headline", []string{"Headline", "headline"}},
	{"Seniority", []string{"Seniority", "seniority"}},
	{"Email", []string{"Email", "email", "Email Address", "emailAddress"}},
	{"LinkedIn Link", []string{"LinkedIn Link", "linkedIn", "linkedin", "linkedin_link"}},
	{"Lead City", []string{"Lead City", "Company City", "city", "location"}},
	{"Lead State", []string{"Lead State", "Company State", "state", "province", "region"}},
	{"Lead Country", []string{"Lead Country", "Company Country", "country"}},
	{"Company Name", []string{"Company Name", "companyName", "company_name"}},
	{"Industry", []string{"Industry", "industry"}},
	{"Employee Count", []string{"Employee Count", "employees", "employeeCount", "employee_count"}},
	{"Cleaned Company Name", []string{"Cleaned Company Name", "cleanedCompanyName", "companyName"}},
	{"MillionVerifier Status", []string{"MillionVerifier Status", "Verification Status", "verificationStatus"}},
	{"Company Website Full", []string{"Company Website Full", "website", "Website", "companyWebsite"}},
	{"Company LinkedIn Link", []string{"Company LinkedIn Link", "companyLinkedIn", "company_linkedin"}},
	{"Company Keywords", []string{"Company Keywords", "keywords", "companyKeywords"}},
	{"Company Technologies", []string{"Company Technologies", "technologies", "companyTechnologies"}},
	{"Company Short Description", []string{"Company Short Description", "description", "Company Description"}},
	{"Company Founded Year", []string{"Company Founded Year", "founded", "foundedYear"}},
	{"Company Phone Number", []string{"Company Phone Number", "companyPhone", "phone"}},
}

// CSVReadResult holds both the canonicalized rows used by the pipeline
// and the raw rows kept for export round-trip.
type CSVReadResult struct {
	Rows          []map[string]string
	RawRows       []map[string]string
	InputColumns  []string
	HeaderMapping map[string]string
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeKey(value string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
}

// ReadLeadsCSV reads a leads file, strips any BOM, and canonicalizes
// every row against the header alias table.
func ReadLeadsCSV(path string) (*CSVReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leads file: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse leads CSV: %w", err)
	}
	if len(records) == 0 {
		return &CSVReadResult{HeaderMapping: map[string]string{}}, nil
	}

	var inputColumns []string
	for _, column := range records[0] {
		if strings.TrimSpace(column) != "" {
			inputColumns = append(inputColumns, column)
		}
	}

	normalizedToOriginal := make(map[string]string, len(inputColumns))
	for _, column := range inputColumns {
		normalizedToOriginal[normalizeKey(column)] = column
	}

	headerMapping := make(map[string]string)
	for _, entry := range canonicalHeaderAliases {
		for _, alias := range entry.aliases {
			if hit, ok := normalizedToOriginal[normalizeKey(alias)]; ok {
				headerMapping[entry.canonical] = hit
				break
			}
		}
	}

	result := &CSVReadResult{
		InputColumns:  inputColumns,
		HeaderMapping: headerMapping,
	}
	header := records[0]
	for _, record := range records[1:] {
		raw := make(map[string]string, len(header))
		for i, column := range header {
			if strings.TrimSpace(column) == "" || i >= len(record) {
				continue
			}
			raw[column] = strings.TrimSpace(record[i])
		}
		result.RawRows = append(result.RawRows, raw)
		result.Rows = append(result.Rows, canonicalizeRow(raw))
	}

	logging.Campaign("Read %d lead rows from %s (%d columns mapped)", len(result.Rows), path, len(headerMapping))
	return result, nil
}

// canonicalizeRow projects a raw row onto the canonical column set,
// backfills company-name mirrors, synthesizes Full Name and drops junk
// city values.
func canonicalizeRow(raw map[string]string) map[string]string {
	normalized := make(map[string]string, len(raw))
	for key, value := range raw {
		if _, exists := normalized[normalizeKey(key)]; !exists || value != "" {
			normalized[normalizeKey(key)] = value
		}
	}

	canonical := make(map[string]string, len(canonicalHeaderAliases))
	for _, entry := range canonicalHeaderAliases {
		value := ""
		for _, alias := range entry.aliases {
			if hit := normalized[normalizeKey(alias)]; hit != "" {
				value = strings.TrimSpace(hit)
				break
			}
		}
		canonical[entry.canonical] = value
	}

	if canonical["Company Name"] == "" && canonical["Cleaned Company Name"] != "" {
		canonical["Company Name"] = canonical["Cleaned Company Name"]
	}
	if canonical["Cleaned Company Name"] == "" && canonical["Company Name"] != "" {
		canonical["Cleaned Company Name"] = canonical["Company Name"]
	}
	if canonical["Full Name"] == "" {
		canonical["Full Name"] = strings.TrimSpace(canonical["First Name"] + " " + canonical["Last Name"])
	}

	switch canonical["Lead City"] {
	case "0", "-", "n/a", "N/A":
		canonical["Lead City"] = ""
	}

	return canonical
}

// FormatHeaderMapping renders the detected header mapping for log and
// status output.
func FormatHeaderMapping(mapping map[string]string) string {
	if len(mapping) == 0 {
		return "nessuna corrispondenza header rilevata"
	}
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chunks := make([]string, 0, len(keys))
	for _, k := range keys {
		chunks = append(chunks, fmt.Sprintf("%s <- %s", k, mapping[k]))
	}
	return strings.Join(chunks, "; ")
}
