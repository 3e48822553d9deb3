package search

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Social networks, directories and job boards never count as a
// company's official site.
var blockedOfficialSiteDomains = map[string]bool{
	"linkedin.com":     true,
	"facebook.com":     true,
	"instagram.com":    true,
	"x.com":            true,
	"twitter.com":      true,
	"youtube.com":      true,
	"wikipedia.org":    true,
	"it.wikipedia.org": true,
	"paginegialle.it":  true,
	"indeed.com":       true,
	"glassdoor.com":    true,
}

var tokenRe = regexp.MustCompile(`[a-z0-9]{3,}`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// Domain returns the lowercased host of a URL without any www prefix.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}

// NormalizeHomepageURL reduces a deep link to its scheme://host/ root.
func NormalizeHomepageURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
}

// BuildSiteQuery forms the official-site discovery query.
func BuildSiteQuery(companyName, city string) string {
	if city != "" {
		return fmt.Sprintf("%s %s sito ufficiale", companyName, city)
	}
	return companyName + " sito ufficiale"
}

// BuildNewsQuery forms the news discovery query.
func BuildNewsQuery(companyName, city string) string {
	if city != "" {
		return fmt.Sprintf("%s %s news", companyName, city)
	}
	return companyName + " news"
}

// SelectOfficialSite ranks candidates by how likely they are the
// company's own homepage and returns the winner with its URL normalized
// to the homepage root. Returns nil when there are no candidates.
func SelectOfficialSite(companyName, city string, candidates []Hit) *Hit {
	if len(candidates) == 0 {
		return nil
	}

	companyTokens := tokenize(companyName)
	cityTokens := tokenize(city)

	score := func(hit Hit) int {
		rank := 0
		host := Domain(hit.URL)
		text := strings.ToLower(hit.Title + " " + hit.Snippet)

		for blocked := range blockedOfficialSiteDomains {
			if host == blocked || strings.HasSuffix(host, "."+blocked) {
				rank -= 40
				break
			}
		}

		for _, token := range companyTokens {
			if strings.Contains(host, token) {
				rank += 12
			}
			if strings.Contains(text, token) {
				rank += 5
			}
		}
		for _, token := range cityTokens {
			if strings.Contains(host, token) {
				rank += 8
			}
			if strings.Contains(text, token) {
				rank += 4
			}
		}

		if strings.Contains(text, "ufficiale") {
			rank += 8
		}
		if strings.Contains(text, "azienda") {
			rank += 4
		}
		if strings.Contains(hit.URL, "/news") || strings.Contains(hit.URL, "/blog") {
			rank -= 6
		}
		return rank
	}

	ranked := make([]Hit, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	selected := ranked[0]
	selected.URL = NormalizeHomepageURL(selected.URL)
	return &selected
}

// FilterNewsResults drops hits on the company's own domain and blocked
// domains. When filtering would leave nothing, the raw list is kept.
func FilterNewsResults(newsResults []Hit, selectedSite *Hit) []Hit {
	if len(newsResults) == 0 {
		return nil
	}

	selectedDomain := ""
	if selectedSite != nil {
		selectedDomain = Domain(selectedSite.URL)
	}

	var filtered []Hit
	seen := make(map[string]bool)
	for _, hit := range newsResults {
		host := Domain(hit.URL)
		if selectedDomain != "" && (host == selectedDomain || strings.HasSuffix(host, "."+selectedDomain)) {
			continue
		}
		if blockedOfficialSiteDomains[host] {
			continue
		}
		if seen[hit.URL] {
			continue
		}
		seen[hit.URL] = true
		filtered = append(filtered, hit)
	}

	if len(filtered) == 0 {
		return newsResults
	}
	return filtered
}

// Discovery bundles the outcome of company discovery.
type Discovery struct {
	SiteQuery      string
	SiteCandidates []Hit
	SelectedSite   *Hit
	NewsQuery      string
	NewsResults    []Hit
}

// DiscoverCompanyAndNews runs site discovery then news discovery,
// excluding the selected site's own domain from the news query.
func (c *Client) DiscoverCompanyAndNews(ctx context.Context, companyName, city string) Discovery {
	discovery := Discovery{SiteQuery: BuildSiteQuery(companyName, city)}
	discovery.SiteCandidates = c.SearchWeb(ctx, discovery.SiteQuery, 10)
	discovery.SelectedSite = SelectOfficialSite(companyName, city, discovery.SiteCandidates)

	discovery.NewsQuery = BuildNewsQuery(companyName, city)
	if discovery.SelectedSite != nil {
		discovery.NewsQuery += " -site:" + Domain(discovery.SelectedSite.URL)
	}

	const newsMax = 8
	raw := c.SearchNews(ctx, discovery.NewsQuery, newsMax*2)
	filtered := FilterNewsResults(raw, discovery.SelectedSite)
	if len(filtered) > newsMax {
		filtered = filtered[:newsMax]
	}
	discovery.NewsResults = filtered
	return discovery
}
