package leads

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailgenius/internal/types"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sampleCSV = `First Name,Last Name,Title,Seniority,Email,Company Name,Company Website Full,MillionVerifier Status
Mario,Rossi,CEO,c_suite,mario@rossi.it,Rossi Srl,https://rossi.it,good
Luca,Bianchi,Developer,entry,luca@rossi.it,Rossi Srl,https://rossi.it,good
Anna,Verdi,Marketing Manager,manager,anna@verdi.it,Verdi Spa,https://verdi.example,risky
`

func TestReadLeadsCSV(t *testing.T) {
	path := writeCSV(t, sampleCSV)

	result, err := ReadLeadsCSV(path)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Len(t, result.RawRows, 3)
	assert.Equal(t, "Mario", result.Rows[0]["First Name"])
	assert.Equal(t, "Mario Rossi", result.Rows[0]["Full Name"])
	assert.Equal(t, "Rossi Srl", result.Rows[0]["Cleaned Company Name"])
	assert.Equal(t, "Company Name", result.HeaderMapping["Company Name"])
}

func TestReadLeadsCSVStripsBOM(t *testing.T) {
	path := writeCSV(t, "\uFEFF"+"First Name,Email\nMario,m@x.it\n")

	result, err := ReadLeadsCSV(path)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Mario", result.Rows[0]["First Name"])
	assert.Equal(t, "First Name", result.HeaderMapping["First Name"])
}

func TestReadLeadsCSVAliasHeaders(t *testing.T) {
	path := writeCSV(t, "firstName,email,companyName,website\nMario,m@x.it,Acme,https://acme.it\n")

	result, err := ReadLeadsCSV(path)
	require.NoError(t, err)
	row := result.Rows[0]
	assert.Equal(t, "Mario", row["First Name"])
	assert.Equal(t, "m@x.it", row["Email"])
	assert.Equal(t, "Acme", row["Company Name"])
	assert.Equal(t, "https://acme.it", row["Company Website Full"])
}

func TestCanonicalizeRowJunkCity(t *testing.T) {
	for _, junk := range []string{"0", "-", "n/a", "N/A"} {
		row := canonicalizeRow(map[string]string{"Lead City": junk})
		assert.Empty(t, row["Lead City"], "junk=%q", junk)
	}
	row := canonicalizeRow(map[string]string{"Lead City": "Milano"})
	assert.Equal(t, "Milano", row["Lead City"])
}

func TestCanonicalizeRowCompanyNameBackfill(t *testing.T) {
	row := canonicalizeRow(map[string]string{"Cleaned Company Name": "Acme"})
	assert.Equal(t, "Acme", row["Company Name"])

	row = canonicalizeRow(map[string]string{"Company Name": "Beta Srl"})
	assert.Equal(t, "Beta Srl", row["Cleaned Company Name"])
}

func TestPreflight(t *testing.T) {
	path := writeCSV(t, "First Name,Email,Company Name\nMario,m@x.it,Acme\n,missing@x.it,Acme\nAnna,,Beta\n")
	data, err := ReadLeadsCSV(path)
	require.NoError(t, err)

	result := Preflight(data, nil)
	assert.Equal(t, 3, result.RowsTotal)
	assert.Equal(t, 1, result.RowsValid)
	assert.Equal(t, 2, result.RowsSkipped)
	require.Len(t, result.Rows, 3)
	assert.True(t, result.Rows[0].IsValid)
	assert.Equal(t, []string{"First Name"}, result.Rows[1].MissingRequired)
	assert.Equal(t, []string{"Email"}, result.Rows[2].MissingRequired)
}

func TestPreflightMissingWebsiteStillValid(t *testing.T) {
	path := writeCSV(t, "First Name,Email,Company Name,Company Website Full\nMario,m@x.it,Acme,\n")
	data, err := ReadLeadsCSV(path)
	require.NoError(t, err)

	result := Preflight(data, nil)
	assert.Equal(t, 1, result.RowsValid)
	assert.Zero(t, result.RowsSkipped)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Rossi Srl", "rossi-srl"},
		{"  ACME  S.p.A. ", "acme-spa"},
		{"già però", "gi-per"},
		{"", "item"},
		{"!!!", "item"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "in=%q", tt.in)
	}
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://acme.it/about", CleanURL(" https://acme.it/about "))
	assert.Equal(t, "http://acme.it", CleanURL("http://acme.it"))
	assert.Empty(t, CleanURL("acme.it"))
	assert.Empty(t, CleanURL("ftp://acme.it"))
	assert.Empty(t, CleanURL(""))
}

func TestCompanyKey(t *testing.T) {
	assert.Equal(t, "rossi-srl", CompanyKey(map[string]string{"Cleaned Company Name": "Rossi Srl"}))
	assert.Equal(t, "acme.it", CompanyKey(map[string]string{"Company Website Full": "https://www.acme.it/home"}))
	assert.Equal(t, "beta-spa", CompanyKey(map[string]string{"Company Name": "Beta Spa"}))
	assert.Equal(t, "azienda", CompanyKey(map[string]string{}))
}

func TestGroupRowsByCompany(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	data, err := ReadLeadsCSV(path)
	require.NoError(t, err)
	result := Preflight(data, nil)

	order, groups := GroupRowsByCompany(result.Rows)
	require.Equal(t, []string{"rossi-srl", "verdi-spa"}, order)
	assert.Len(t, groups["rossi-srl"], 2)
	assert.Len(t, groups["verdi-spa"], 1)
}

func TestGroupRowsByCompanySkipsInvalid(t *testing.T) {
	rows := []PreflightRow{
		{Row: map[string]string{"Company Name": "Acme"}, IsValid: true},
		{Row: map[string]string{"Company Name": "Ghost"}, IsValid: false},
	}
	order, groups := GroupRowsByCompany(rows)
	assert.Equal(t, []string{"acme"}, order)
	assert.NotContains(t, groups, "ghost")
}

func TestScoreContact(t *testing.T) {
	ceo := map[string]string{
		"Seniority":              "c_suite",
		"Title":                  "CEO",
		"MillionVerifier Status": "good",
		"Email":                  "m@x.it",
		"LinkedIn Link":          "https://linkedin.com/in/m",
		"Headline":               "CEO at Acme",
	}
	// 50 seniority + 20 ceo boost + 10 good + 5 completeness fields * 1.5.
	assert.Equal(t, 87.5, ScoreContact(ceo))

	entry := map[string]string{
		"Seniority":              "entry",
		"Title":                  "Developer",
		"MillionVerifier Status": "risky",
		"Email":                  "d@x.it",
	}
	// 10 entry - 5 risky + 3 completeness fields * 1.5.
	assert.Equal(t, 9.5, ScoreContact(entry))
}

func TestScoreContactUnknownSeniority(t *testing.T) {
	score := ScoreContact(map[string]string{"Seniority": "boardmember"})
	// 12 unknown-nonempty + 1 completeness field.
	assert.Equal(t, 13.5, score)

	assert.Zero(t, ScoreContact(map[string]string{}))
}

func TestScoreContactTitleBoostsCumulative(t *testing.T) {
	score := ScoreContact(map[string]string{"Title": "CEO & Founder"})
	// 20 + 18 + 1 completeness field.
	assert.Equal(t, 39.5, score)
}

func TestBuildCompanyAndContacts(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	data, err := ReadLeadsCSV(path)
	require.NoError(t, err)
	result := Preflight(data, nil)
	_, groups := GroupRowsByCompany(result.Rows)

	company, contacts := BuildCompanyAndContacts("rossi-srl", groups["rossi-srl"])
	assert.Equal(t, "rossi-srl", company.CompanyKey)
	assert.Equal(t, "Rossi Srl", company.CompanyName)
	assert.Equal(t, "https://rossi.it", company.Website)

	require.Len(t, contacts, 2)
	assert.True(t, contacts[0].IsPrimary)
	assert.False(t, contacts[1].IsPrimary)
	assert.Equal(t, "Mario Rossi", contacts[0].FullName)
	assert.Greater(t, contacts[0].Score, contacts[1].Score)
}

func TestSelectPrimaryContactTieKeepsFirst(t *testing.T) {
	contacts := []types.LeadContact{
		{FullName: "Primo", Score: 20},
		{FullName: "Secondo", Score: 20},
	}
	primary := SelectPrimaryContact(contacts)
	require.NotNil(t, primary)
	assert.Equal(t, "Primo", primary.FullName)
	assert.True(t, contacts[0].IsPrimary)
	assert.False(t, contacts[1].IsPrimary)
}

func TestSelectPrimaryContactEmpty(t *testing.T) {
	assert.Nil(t, SelectPrimaryContact(nil))
}
