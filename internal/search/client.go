// Package search discovers a company's official site and recent news
// through the public Bing and DuckDuckGo HTML endpoints, without any
// API key.
package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emailgenius/internal/logging"
)

const (
	duckduckgoHTMLURL = "https://duckduckgo.com/html/"
	bingSearchURL     = "https://www.bing.com/search"
	bingNewsSearchURL = "https://www.bing.com/news/search"

	defaultTimeout = 15 * time.Second
)

// Client performs web and news searches. The zero value is not usable;
// construct with NewClient.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a search client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// SearchWeb runs a generic web search. Bing is tried first since it is
// more reliable here, then the DuckDuckGo HTML endpoint, then Bing
// again as the last resort.
func (c *Client) SearchWeb(ctx context.Context, query string, maxResults int) []Hit {
	if hits := c.searchBing(ctx, query, maxResults); len(hits) > 0 {
		return hits
	}
	if hits := c.searchDuckDuckGo(ctx, query, maxResults); len(hits) > 0 {
		return hits
	}
	return c.searchBing(ctx, query, maxResults)
}

// SearchNews queries the Bing news vertical, falling back to a generic
// web search when it returns nothing.
func (c *Client) SearchNews(ctx context.Context, query string, maxResults int) []Hit {
	target := bingNewsSearchURL + "?" + url.Values{"q": {query}, "setlang": {"it"}}.Encode()
	if page := c.fetch(ctx, http.MethodGet, target, ""); page != "" {
		if hits := ParseBingNewsHTML(page, maxResults); len(hits) > 0 {
			return hits
		}
	}
	return c.SearchWeb(ctx, query, maxResults)
}

func (c *Client) searchBing(ctx context.Context, query string, maxResults int) []Hit {
	target := bingSearchURL + "?" + url.Values{"q": {query}, "setlang": {"it"}}.Encode()
	page := c.fetch(ctx, http.MethodGet, target, "")
	if page == "" {
		return nil
	}
	return ParseBingHTML(page, maxResults)
}

func (c *Client) searchDuckDuckGo(ctx context.Context, query string, maxResults int) []Hit {
	payload := url.Values{"q": {query}, "kl": {"it-it"}}.Encode()
	page := c.fetch(ctx, http.MethodPost, duckduckgoHTMLURL, payload)
	if page == "" {
		return nil
	}
	return ParseDuckDuckGoHTML(page, maxResults)
}

// fetch performs one request and returns the body, or empty string on
// any failure. Search is best-effort; callers degrade gracefully.
func (c *Client) fetch(ctx context.Context, method, target, body string) string {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.EnrichmentDebug("Search request failed for %s: %v", target, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.EnrichmentDebug("Search request for %s returned %d", target, resp.StatusCode)
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ""
	}
	return string(data)
}
