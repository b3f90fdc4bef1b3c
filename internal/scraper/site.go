package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SiteConfig describes the single job board a run targets. It is decoupled
// from Viper so strategies stay easy to construct in tests.
type SiteConfig struct {
	// BaseURL is the scheme+host root, e.g. "https://board.example".
	BaseURL string
	// ListingPath is a printf template with one %d page number,
	// e.g. "/jobs?page=%d". Pages are 1-based.
	ListingPath string
	// SearchPath is the JSON search endpoint path.
	SearchPath string
	// SitemapPath locates the sitemap index.
	SitemapPath string
	// DetailPath is the path segment that identifies detail pages; the final
	// path segment after it is the canonical job ID.
	DetailPath string
	// CardSelectors are tried in order against listing pages; each should
	// match the anchor inside one job card.
	CardSelectors []string
	// PageSize is the requested page size for the search API.
	PageSize int
	// MaxPages caps sequential pagination per strategy.
	MaxPages int
}

// Filters are the search parameters applied during discovery. They are never
// persisted on records.
type Filters struct {
	Keyword         string
	Location        string
	Category        string
	SortByPublished bool
}

// DetailURLPattern compiles the pattern recognizing detail-page URLs.
func (c SiteConfig) DetailURLPattern() *regexp.Regexp {
	path := c.DetailPath
	if path == "" {
		path = "/jobs/"
	}
	return regexp.MustCompile(regexp.QuoteMeta(path) + `[^/?#]+`)
}

// DetailURL templates a bare job ID into an absolute detail URL.
func (c SiteConfig) DetailURL(id string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	path := "/" + strings.Trim(c.DetailPath, "/")
	return fmt.Sprintf("%s%s/%s", base, path, id)
}

// ListingURL renders the listing URL for a 1-based page number.
func (c SiteConfig) ListingURL(page int) string {
	return strings.TrimRight(c.BaseURL, "/") + fmt.Sprintf(c.ListingPath, page)
}

// AbsoluteURL resolves href against the base URL. Unresolvable inputs come
// back unchanged.
func (c SiteConfig) AbsoluteURL(href string) string {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
