package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ListingStrategy scrapes sequential listing pages for job-card links. It is
// the first strategy tried: cheap, but the card markup drifts, so any page
// yielding zero new links ends the strategy early.
type ListingStrategy struct {
	fetcher  Fetcher
	limiter  *HostLimiter
	site     SiteConfig
	detailRe *regexp.Regexp
	logger   *zap.Logger
}

// NewListingStrategy builds the listing-page scraper.
func NewListingStrategy(fetcher Fetcher, limiter *HostLimiter, site SiteConfig, logger *zap.Logger) *ListingStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingStrategy{
		fetcher:  fetcher,
		limiter:  limiter,
		site:     site,
		detailRe: site.DetailURLPattern(),
		logger:   logger,
	}
}

// Name identifies the strategy in logs.
func (s *ListingStrategy) Name() string { return "listing" }

// NextBatch fetches one listing page and returns the detail links on it.
func (s *ListingStrategy) NextBatch(ctx context.Context, cursor Cursor) ([]Candidate, Cursor, bool, error) {
	// A page that added nothing new means pagination is exhausted or the
	// markup stopped matching.
	if cursor.Stalls >= 1 {
		return nil, cursor, true, nil
	}
	page := cursor.Page + 1
	if page > s.site.MaxPages {
		return nil, cursor, true, nil
	}

	body, err := s.fetchPage(ctx, s.site.ListingURL(page))
	if err != nil {
		return nil, cursor, false, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, cursor, false, fmt.Errorf("parse listing page %d: %w", page, err)
	}

	batch := s.cardLinks(doc)
	if len(batch) == 0 {
		batch = s.anchorFallback(doc)
	}

	next := cursor
	next.Page = page
	return batch, next, page >= s.site.MaxPages, nil
}

func (s *ListingStrategy) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, pageURL); err != nil {
			return nil, err
		}
	}
	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *ListingStrategy) cardLinks(doc *goquery.Document) []Candidate {
	var batch []Candidate
	for _, sel := range s.site.CardSelectors {
		doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
			if c, ok := s.candidateFromNode(node); ok {
				batch = append(batch, c)
			}
		})
		if len(batch) > 0 {
			break
		}
	}
	return batch
}

// anchorFallback scans every anchor for the detail-URL path pattern when no
// card selector matched.
func (s *ListingStrategy) anchorFallback(doc *goquery.Document) []Candidate {
	var batch []Candidate
	doc.Find("a[href]").Each(func(_ int, node *goquery.Selection) {
		href, _ := node.Attr("href")
		if !s.detailRe.MatchString(href) {
			return
		}
		if c, ok := s.candidateFromNode(node); ok {
			batch = append(batch, c)
		}
	})
	return batch
}

func (s *ListingStrategy) candidateFromNode(node *goquery.Selection) (Candidate, bool) {
	anchor := node
	if !node.Is("a") {
		anchor = node.Find("a[href]").First()
	}
	href, ok := anchor.Attr("href")
	if !ok || href == "" {
		return Candidate{}, false
	}
	abs := s.site.AbsoluteURL(href)
	return Candidate{ID: ExtractJobID(abs), URL: abs}, true
}
