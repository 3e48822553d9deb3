package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"emailgenius/internal/logging"
)

// RodFetcher renders pages in a headless browser, picking up content
// that only appears after JavaScript runs. Each Fetch launches a fresh
// browser so no state leaks between companies.
type RodFetcher struct {
	headless bool
	timeout  time.Duration
}

// NewRodFetcher builds a browser-backed fetcher.
func NewRodFetcher(headless bool, timeout time.Duration) *RodFetcher {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &RodFetcher{headless: headless, timeout: timeout}
}

// Fetch navigates to the page and extracts title, body text and links.
func (f *RodFetcher) Fetch(ctx context.Context, pageURL string) (snapshot *Snapshot, err error) {
	defer func() {
		// rod panics on protocol failures; degrade to an error so the
		// dossier builder can fall back.
		if r := recover(); r != nil {
			logging.EnrichmentWarn("Browser fetch of %s panicked: %v", pageURL, r)
			snapshot = nil
			err = fmt.Errorf("browser fetch of %s failed: %v", pageURL, r)
		}
	}()

	controlURL, err := launcher.New().Headless(f.headless).Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, err
	}

	page = page.Timeout(f.timeout)
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}
	// Network-idle is best-effort; analytics-heavy pages never settle.
	_ = page.Timeout(8 * time.Second).WaitIdle(8 * time.Second)

	title, err := page.Info()
	if err != nil {
		return nil, err
	}

	bodyText, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return nil, err
	}

	linksRes, err := page.Eval(`() => Array.from(document.querySelectorAll("a[href]")).map(e => e.href).filter(Boolean)`)
	if err != nil {
		return nil, err
	}

	cleaned := strings.Join(strings.Fields(bodyText.Value.Str()), " ")
	excerpt := cleaned
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}

	var links []string
	seen := make(map[string]bool)
	for _, item := range linksRes.Value.Arr() {
		link := item.Str()
		if link == "" || seen[link] || len(links) >= maxPageLinks {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	return &Snapshot{
		URL:         pageURL,
		Title:       strings.TrimSpace(title.Title),
		TextExcerpt: excerpt,
		FullText:    cleaned,
		Links:       links,
	}, nil
}
