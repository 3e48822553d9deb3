// Package enrichment builds the evidence dossier about a target
// company: website snapshot, discovered news, and deterministic pain
// and opportunity hypotheses derived from the lead data.
package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	excerptLimit  = 1500
	maxPageLinks  = 120
	maxFetchBytes = 2 << 20
)

// Snapshot is the distilled content of one fetched page.
type Snapshot struct {
	URL         string
	Title       string
	TextExcerpt string
	FullText    string
	Links       []string
}

// Fetcher loads a page and distills it into a Snapshot.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Snapshot, error)
}

// HTTPFetcher fetches pages with a plain HTTP client. It sees no
// JavaScript-rendered content, which is acceptable for most company
// homepages.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher builds a fetcher with the given per-page timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPFetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads the page and extracts title, visible text, and links.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	return snapshotFromDocument(pageURL, doc), nil
}

func snapshotFromDocument(pageURL string, doc *html.Node) *Snapshot {
	var title string
	var text strings.Builder
	var links []string
	seenLinks := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						href := resolveLink(pageURL, attr.Val)
						if href != "" && !seenLinks[href] && len(links) < maxPageLinks {
							seenLinks[href] = true
							links = append(links, href)
						}
					}
				}
			}
		}
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	cleaned := strings.Join(strings.Fields(text.String()), " ")
	excerpt := cleaned
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}

	return &Snapshot{
		URL:         pageURL,
		Title:       title,
		TextExcerpt: excerpt,
		FullText:    cleaned,
		Links:       links,
	}
}

func resolveLink(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
