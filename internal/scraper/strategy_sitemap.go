package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"
)

// SitemapStrategy is the fallback of last resort: it walks the sitemap index,
// visits job-related child sitemaps, and collects detail-page locations. It
// over-collects (quota deficit doubled) to absorb de-duplication loss against
// candidates found by earlier strategies.
type SitemapStrategy struct {
	fetcher  Fetcher
	limiter  *HostLimiter
	site     SiteConfig
	detailRe *regexp.Regexp
	logger   *zap.Logger

	// children caches the filtered child sitemap URLs across NextBatch calls.
	children []string
	indexed  bool
}

// NewSitemapStrategy builds the sitemap fallback.
func NewSitemapStrategy(fetcher Fetcher, limiter *HostLimiter, site SiteConfig, logger *zap.Logger) *SitemapStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SitemapStrategy{
		fetcher:  fetcher,
		limiter:  limiter,
		site:     site,
		detailRe: site.DetailURLPattern(),
		logger:   logger,
	}
}

// Name identifies the strategy in logs.
func (s *SitemapStrategy) Name() string { return "sitemap" }

// NextBatch visits child sitemaps starting at the cursor until enough extra
// candidates are gathered or the index is exhausted.
func (s *SitemapStrategy) NextBatch(ctx context.Context, cursor Cursor) ([]Candidate, Cursor, bool, error) {
	if !s.indexed {
		if err := s.loadIndex(ctx); err != nil {
			return nil, cursor, false, err
		}
	}
	if len(s.children) == 0 {
		return nil, cursor, true, nil
	}

	target := cursor.Need * 2
	if target <= 0 {
		return nil, cursor, true, nil
	}

	var batch []Candidate
	page := cursor.Page
	for page < len(s.children) && len(batch) < target {
		locs, err := s.fetchLocs(ctx, s.children[page])
		page++
		if err != nil {
			s.logger.Warn("child sitemap fetch failed, skipping", zap.Error(err))
			continue
		}
		for _, loc := range locs {
			if !s.detailRe.MatchString(loc) {
				continue
			}
			batch = append(batch, Candidate{ID: ExtractJobID(loc), URL: loc})
			if len(batch) >= target {
				break
			}
		}
	}

	next := cursor
	next.Page = page
	done := page >= len(s.children) || len(batch) >= target
	return batch, next, done, nil
}

// loadIndex fetches the sitemap index and keeps the job-related children. An
// index that is itself a urlset is treated as its own single child.
func (s *SitemapStrategy) loadIndex(ctx context.Context) error {
	indexURL := strings.TrimRight(s.site.BaseURL, "/") + s.site.SitemapPath
	body, err := s.fetch(ctx, indexURL)
	if err != nil {
		return err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse sitemap index: %w", err)
	}

	s.indexed = true
	if xmlquery.FindOne(doc, "//sitemapindex") == nil {
		s.children = []string{indexURL}
		return nil
	}
	for _, node := range xmlquery.Find(doc, "//sitemap/loc") {
		loc := strings.TrimSpace(node.InnerText())
		if loc == "" {
			continue
		}
		if strings.Contains(strings.ToLower(loc), "job") {
			s.children = append(s.children, loc)
		}
	}
	return nil
}

func (s *SitemapStrategy) fetchLocs(ctx context.Context, sitemapURL string) ([]string, error) {
	body, err := s.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}
	var locs []string
	for _, node := range xmlquery.Find(doc, "//url/loc") {
		if loc := strings.TrimSpace(node.InnerText()); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

func (s *SitemapStrategy) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, rawURL); err != nil {
			return nil, err
		}
	}
	resp, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}
