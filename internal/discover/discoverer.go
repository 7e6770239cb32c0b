package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsieve/internal/filter"
	"github.com/amishk599/jobsieve/internal/model"
)

// Discoverer finds posting links on a single listing page.
type Discoverer struct {
	renderer Renderer
	selector string
	rule     *filter.LinkRule
	logger   *slog.Logger
}

var _ model.LinkDiscoverer = (*Discoverer)(nil)

// NewDiscoverer creates a discoverer that selects anchors with the CSS
// selector and keeps those accepted by rule.
func NewDiscoverer(renderer Renderer, selector string, rule *filter.LinkRule, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		renderer: renderer,
		selector: selector,
		rule:     rule,
		logger:   logger,
	}
}

// Discover renders pageURL and returns the distinct absolute http(s) posting
// URLs on it, sorted. Render failures are returned as *model.DiscoveryError.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &model.DiscoveryError{URL: pageURL, Err: fmt.Errorf("parse page url: %w", err)}
	}

	html, err := d.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, &model.DiscoveryError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &model.DiscoveryError{URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}

	self := withoutFragment(base)

	seen := make(map[string]struct{})
	var anchors, skipped int
	doc.Find(d.selector).Each(func(_ int, s *goquery.Selection) {
		anchors++
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		// The rule sees the href as written so that the listing page's own
		// path does not make every relative link match.
		if !d.rule.Match(strings.TrimSpace(href)) {
			return
		}
		abs, ok := resolve(base, href)
		if !ok {
			skipped++
			return
		}
		if abs == self {
			return
		}
		seen[abs] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	sort.Strings(links)

	d.logger.Debug("discovered links",
		"page", pageURL,
		"anchors", anchors,
		"unresolvable", skipped,
		"matched", len(links),
	)
	return links, nil
}

// resolve turns href into an absolute http(s) URL without a fragment. Hrefs
// that already carry a scheme come back as written apart from surrounding
// whitespace and the fragment; relative ones are resolved against base.
// Blank, unparseable and non-http(s) hrefs report false.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	var abs string
	if ref.IsAbs() {
		abs, _, _ = strings.Cut(href, "#")
	} else {
		ref = base.ResolveReference(ref)
		abs = withoutFragment(ref)
	}

	switch strings.ToLower(ref.Scheme) {
	case "http", "https":
		return abs, true
	default:
		return "", false
	}
}

func withoutFragment(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}
