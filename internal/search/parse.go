package search

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Hit is one search engine result.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ParseDuckDuckGoHTML extracts result anchors (class result__a) from the
// DuckDuckGo HTML endpoint. Redirect links through /l/?uddg= are
// unwrapped to their target.
func ParseDuckDuckGoHTML(page string, maxResults int) []Hit {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var hits []Hit
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href, class string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "href":
					href = attr.Val
				case "class":
					class = attr.Val
				}
			}
			if strings.Contains(class, "result__a") && href != "" {
				title := collapseWhitespace(textContent(n))
				target := resolveDDGURL(href)
				if title != "" && target != "" && !seen[target] {
					seen[target] = true
					hits = append(hits, Hit{Title: title, URL: target})
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if maxResults > 0 && len(hits) >= maxResults {
				return
			}
			walk(child)
		}
	}
	walk(doc)

	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func resolveDDGURL(rawHref string) string {
	href := strings.TrimSpace(rawHref)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(parsed.Host, "duckduckgo.com") && strings.HasPrefix(parsed.Path, "/l/") {
		return parsed.Query().Get("uddg")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return href
}

var (
	bingResultRe = regexp.MustCompile(`(?is)<h2[^>]*>\s*<a[^>]*href="([^"]+)"[^>]*>(.*?)</a>\s*</h2>`)
	bingNewsRe   = regexp.MustCompile(`(?is)<a[^>]*class="title"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
)

// ParseBingHTML extracts organic results from a Bing SERP.
func ParseBingHTML(page string, maxResults int) []Hit {
	var hits []Hit
	seen := make(map[string]bool)

	for _, match := range bingResultRe.FindAllStringSubmatch(page, -1) {
		target := decodeBingRedirect(match[1])
		title := collapseWhitespace(tagRe.ReplaceAllString(html.UnescapeString(match[2]), ""))
		if title == "" || target == "" || seen[target] {
			continue
		}
		seen[target] = true
		hits = append(hits, Hit{Title: title, URL: target})
		if maxResults > 0 && len(hits) >= maxResults {
			break
		}
	}
	return hits
}

// ParseBingNewsHTML extracts headline anchors from the Bing news
// vertical.
func ParseBingNewsHTML(page string, maxResults int) []Hit {
	var hits []Hit
	seen := make(map[string]bool)

	for _, match := range bingNewsRe.FindAllStringSubmatch(page, -1) {
		target := strings.TrimSpace(html.UnescapeString(match[1]))
		title := collapseWhitespace(tagRe.ReplaceAllString(html.UnescapeString(match[2]), ""))
		if title == "" || target == "" || seen[target] {
			continue
		}
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			continue
		}
		seen[target] = true
		hits = append(hits, Hit{Title: title, URL: target})
		if maxResults > 0 && len(hits) >= maxResults {
			break
		}
	}
	return hits
}

// decodeBingRedirect unwraps Bing /ck/a redirect links. The target is
// base64url in the "u" parameter, usually prefixed with "a1".
func decodeBingRedirect(rawHref string) string {
	href := html.UnescapeString(strings.TrimSpace(rawHref))
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(parsed.Host, "bing.com") || !strings.HasPrefix(parsed.Path, "/ck/a") {
		if parsed.Scheme == "http" || parsed.Scheme == "https" {
			return href
		}
		return ""
	}

	encoded := parsed.Query().Get("u")
	if encoded == "" {
		return href
	}
	encoded = strings.TrimPrefix(encoded, "a1")

	if padding := len(encoded) % 4; padding != 0 {
		encoded += strings.Repeat("=", 4-padding)
	}
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return href
	}
	target := string(decoded)
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return href
}
