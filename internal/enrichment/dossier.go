package enrichment

import (
	"context"
	"fmt"
	"strings"

	"emailgenius/internal/logging"
	"emailgenius/internal/search"
	"emailgenius/internal/types"
)

const (
	siteSummaryLimit  = 2500
	extraExcerptLimit = 500
)

// Builder assembles enrichment dossiers. Every step is best-effort: a
// failed fetch or search degrades to a minimal dossier built from the
// lead data alone, never an error.
type Builder struct {
	search        *search.Client
	fetcher       Fetcher
	maxExtraPages int
}

// NewBuilder wires a dossier builder. fetcher may be nil to skip
// website snapshots entirely.
func NewBuilder(searchClient *search.Client, fetcher Fetcher, maxExtraPages int) *Builder {
	if maxExtraPages < 0 {
		maxExtraPages = 0
	}
	return &Builder{search: searchClient, fetcher: fetcher, maxExtraPages: maxExtraPages}
}

// BuildDossier collects everything known about the company and returns
// the dossier plus the website actually used (discovered when the lead
// row had none).
func (b *Builder) BuildDossier(ctx context.Context, company types.LeadCompany, contact *types.LeadContact) (types.EnrichmentDossier, string) {
	website := company.Website
	city := guessCity(company.Location)

	var newsItems []search.Hit
	var sources []string

	if website == "" && b.search != nil {
		discovery := b.search.DiscoverCompanyAndNews(ctx, company.CompanyName, city)
		if discovery.SelectedSite != nil {
			website = discovery.SelectedSite.URL
			sources = append(sources, discovery.SelectedSite.URL)
			logging.Enrichment("Discovered website %s for %s", website, company.CompanyKey)
		}
		newsItems = discovery.NewsResults
	}

	siteSummary := ""
	var evidence []string
	pains := inferPains(company)
	opportunities := inferOpportunities(company)

	if website != "" && b.fetcher != nil {
		snapshot, err := b.fetcher.Fetch(ctx, website)
		if err != nil {
			logging.EnrichmentWarn("Snapshot of %s failed: %v", website, err)
			evidence = append(evidence, "Sito non analizzabile in modo completo")
		} else {
			siteSummary = truncateBytes(snapshot.TextExcerpt, 1200)
			sources = append(sources, snapshot.URL)
			evidence = append(evidence, "Homepage title: "+snapshot.Title)

			for _, extraURL := range pickInformativeLinks(snapshot.Links, website, b.maxExtraPages) {
				extra, err := b.fetcher.Fetch(ctx, extraURL)
				if err != nil {
					continue
				}
				sources = append(sources, extra.URL)
				evidence = append(evidence, "Pagina rilevata: "+extra.Title)
				if len(siteSummary) < 2200 {
					siteSummary += "\n" + truncateBytes(extra.TextExcerpt, extraExcerptLimit)
				}
			}
		}
	}

	if len(newsItems) == 0 && b.search != nil {
		newsQuery := strings.TrimSpace(company.CompanyName + " " + city + " news")
		newsItems = b.search.SearchNews(ctx, newsQuery, 6)
	}
	for _, hit := range newsItems {
		sources = append(sources, hit.URL)
	}

	evidence = append(evidence, linkedinSummary(company, contact))
	evidence = append(evidence, companyEvidence(company)...)

	summary := strings.Join(strings.Fields(siteSummary), " ")
	if len(summary) > siteSummaryLimit {
		summary = summary[:siteSummaryLimit]
	}

	dossier := types.EnrichmentDossier{
		SiteSummary:           summary,
		PainHypotheses:        compactLines(pains, 5),
		OpportunityHypotheses: compactLines(opportunities, 5),
		Evidence:              compactLines(evidence, 12),
		Sources:               compactLines(sources, 15),
		NewsItems:             toNewsItems(newsItems),
	}
	return dossier, website
}

func toNewsItems(hits []search.Hit) []types.NewsItem {
	var items []types.NewsItem
	for _, hit := range hits {
		items = append(items, types.NewsItem{Title: hit.Title, URL: hit.URL})
	}
	return items
}

func guessCity(location string) string {
	if location == "" {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
}

var informativeLinkTokens = []string{
	"about", "chi-siamo", "azienda", "sostenibilita",
	"sustainability", "servizi", "solutions", "news",
}

// pickInformativeLinks keeps same-host links that look like company
// pages worth reading, up to limit.
func pickInformativeLinks(links []string, baseURL string, limit int) []string {
	if len(links) == 0 || limit <= 0 {
		return nil
	}

	host := search.Domain(baseURL)
	var picked []string
	seen := make(map[string]bool)

	for _, link := range links {
		linkHost := search.Domain(link)
		if host != "" && linkHost != "" && host != linkHost {
			continue
		}
		lower := strings.ToLower(link)
		informative := false
		for _, token := range informativeLinkTokens {
			if strings.Contains(lower, token) {
				informative = true
				break
			}
		}
		if !informative || seen[link] {
			continue
		}
		seen[link] = true
		picked = append(picked, link)
		if len(picked) >= limit {
			break
		}
	}
	return picked
}

func linkedinSummary(company types.LeadCompany, contact *types.LeadContact) string {
	var items []string
	if company.LinkedinCompany != "" {
		items = append(items, "LinkedIn aziendale disponibile: "+company.LinkedinCompany)
	}
	if contact != nil && contact.LinkedinPerson != "" {
		items = append(items, "LinkedIn referente disponibile: "+contact.LinkedinPerson)
	}
	if len(items) == 0 {
		return "Nessun profilo LinkedIn pubblico disponibile nel dataset."
	}
	return strings.Join(items, " ")
}

func inferPains(company types.LeadCompany) []string {
	var out []string
	keywords := strings.ToLower(company.Keywords)
	industry := strings.ToLower(company.Industry)

	if strings.Contains(keywords, "manufacturing") || strings.Contains(industry, "machinery") {
		out = append(out, "possibile pressione su efficienza operativa e continuita' produttiva")
	}
	if strings.Contains(keywords, "quality") || strings.Contains(keywords, "iso") {
		out = append(out, "necessita' di presidiare standard qualita' e compliance")
	}
	if strings.Contains(keywords, "automation") || strings.Contains(keywords, "iot") {
		out = append(out, "integrazione tra sistemi digitali e processi legacy")
	}
	if strings.Contains(keywords, "food") || strings.Contains(keywords, "pharma") {
		out = append(out, "tracciabilita' e requisiti normativi stringenti")
	}

	if len(out) == 0 {
		out = append(out, "allineamento tra priorita' commerciali e execution operativa")
	}
	return out
}

func inferOpportunities(company types.LeadCompany) []string {
	var out []string
	keywords := strings.ToLower(company.Keywords)

	if strings.Contains(keywords, "sustainability") || strings.Contains(keywords, "esg") {
		out = append(out, "valorizzare iniziative ESG con messaggi commerciali misurabili")
	}
	if strings.Contains(keywords, "innovation") || strings.Contains(keywords, "high-tech") {
		out = append(out, "accelerare time-to-market su offerte ad alto valore")
	}
	if strings.Contains(keywords, "b2b") {
		out = append(out, "migliorare posizionamento e conversione su pipeline enterprise")
	}

	out = append(out, "definire quick win con impatto commerciale tracciabile")
	return out
}

func companyEvidence(company types.LeadCompany) []string {
	var items []string
	if company.Industry != "" {
		items = append(items, "Industry: "+company.Industry)
	}
	if company.EmployeeCount > 0 {
		items = append(items, fmt.Sprintf("Employee count stimato: %d", company.EmployeeCount))
	}
	if company.Location != "" {
		items = append(items, "Location: "+company.Location)
	}
	if company.FoundedYear > 0 {
		items = append(items, fmt.Sprintf("Founded year: %d", company.FoundedYear))
	}
	items = append(items, company.Evidence...)
	return items
}

// compactLines trims, deduplicates and caps a list, preserving order.
func compactLines(lines []string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func truncateBytes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
