package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailgenius/internal/types"
)

func TestFallbackVariantsDeterministic(t *testing.T) {
	parent := testParent()
	company := testCompany()
	dossier := types.EnrichmentDossier{}

	first, rec1, flags1 := FallbackVariants(parent, company, nil, dossier, []string{"A", "B", "C"})
	second, rec2, flags2 := FallbackVariants(parent, company, nil, dossier, []string{"A", "B", "C"})
	assert.Equal(t, first, second)
	assert.Equal(t, rec1, rec2)
	assert.Equal(t, flags1, flags2)
}

func TestFallbackVariantsCount(t *testing.T) {
	parent := testParent()
	company := testCompany()

	variants, recommended, _ := FallbackVariants(parent, company, nil, types.EnrichmentDossier{}, []string{"A", "B"})
	require.Len(t, variants, 2)
	assert.Equal(t, "A", variants[0].Variant)
	assert.Equal(t, "B", variants[1].Variant)
	assert.Equal(t, "A", recommended)

	variants, _, _ = FallbackVariants(parent, company, nil, types.EnrichmentDossier{}, []string{"A", "B", "C"})
	require.Len(t, variants, 3)
}

func TestFallbackVariantsConfidence(t *testing.T) {
	variants, _, _ := FallbackVariants(testParent(), testCompany(), nil, types.EnrichmentDossier{}, []string{"A", "B", "C"})
	assert.Equal(t, 0.62, variants[0].Confidence)
	assert.Equal(t, 0.58, variants[1].Confidence)
	assert.Equal(t, 0.58, variants[2].Confidence)
}

func TestFallbackVariantsPlaceholderSubstitution(t *testing.T) {
	parent := testParent()
	parent.OutreachSeedTemplate = "Ciao {{first_name}},\n\nscrivo da {{sender_company}} per {{company_name}}.\n\nPrenota qui: {{booking_link}}\n\n{{sender_name}}\n{{sender_phone}}"
	contact := &types.LeadContact{FullName: "Maria Neri"}

	variants, _, _ := FallbackVariants(parent, testCompany(), contact, types.EnrichmentDossier{}, []string{"A"})
	require.Len(t, variants, 1)
	body := variants[0].Body
	assert.Contains(t, body, "Maria")
	assert.Contains(t, body, "Rossi Srl")
	assert.Contains(t, body, "Agenzia Verdi")
	assert.Contains(t, body, "https://cal.example/verdi")
	assert.Contains(t, body, "+39 02 0000000")
	assert.NotContains(t, body, "{{")
}

func TestFallbackVariantsNoContactUsesTeam(t *testing.T) {
	parent := testParent()
	parent.OutreachSeedTemplate = "Gentile {{first_name}}, un saluto da {{sender_company}}."

	variants, _, _ := FallbackVariants(parent, testCompany(), nil, types.EnrichmentDossier{}, []string{"A"})
	assert.Contains(t, variants[0].Body, "Team")
}

func TestFallbackVariantBFormalRegister(t *testing.T) {
	parent := testParent()
	parent.OutreachSeedTemplate = "Ciao {{first_name}},\n\nti scrivo per un confronto breve con {{company_name}}."

	variants, _, _ := FallbackVariants(parent, testCompany(), nil, types.EnrichmentDossier{}, []string{"A", "B"})
	require.Len(t, variants, 2)
	assert.True(t, strings.HasPrefix(variants[0].Body, "Ciao"))
	assert.True(t, strings.HasPrefix(variants[1].Body, "Buongiorno"))
	assert.NotContains(t, variants[1].Body, " ti ")
}

func TestFallbackVariantCPublicInformationFraming(t *testing.T) {
	variants, _, _ := FallbackVariants(testParent(), testCompany(), nil, types.EnrichmentDossier{}, []string{"C"})
	require.Len(t, variants, 1)
	assert.Contains(t, variants[0].Body, "informazioni pubbliche")
	assert.Contains(t, variants[0].Subject, "Rossi Srl")
}

func TestFallbackVariantsObeyClaimGuard(t *testing.T) {
	parent := testParent()
	parent.OutreachSeedTemplate = "Gentile {{first_name}},\n\nsiamo il leader assoluto e garantiamo risultati per {{company_name}}.\n\nCordiali saluti"

	variants, _, flags := FallbackVariants(parent, testCompany(), nil, types.EnrichmentDossier{}, []string{"A"})
	require.Len(t, variants, 1)
	assert.NotContains(t, strings.ToLower(variants[0].Body), "leader assoluto")
	assert.NotContains(t, strings.ToLower(variants[0].Body), "garantiamo")
	assert.Contains(t, flags, "no_go:leader assoluto")
}

func TestFallbackVariantsCTA(t *testing.T) {
	variants, _, _ := FallbackVariants(testParent(), testCompany(), nil, types.EnrichmentDossier{}, []string{"A"})
	assert.Equal(t, "call conoscitiva 20-30 minuti", variants[0].CTA)
}
