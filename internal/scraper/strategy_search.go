package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// paginationConvention names the query parameters one offset scheme uses. The
// board's API has shipped several conventions over time, so each is attempted
// until two consecutive pages add nothing new.
type paginationConvention struct {
	name   string
	offset string
	limit  string
	// oneBased means the offset parameter carries a page number, not an
	// item offset.
	oneBased bool
}

var searchConventions = []paginationConvention{
	{name: "offset-limit", offset: "offset", limit: "limit"},
	{name: "page-size", offset: "page", limit: "size", oneBased: true},
	{name: "from-size", offset: "from", limit: "size"},
}

// SearchStrategy pages through the board's JSON search endpoint. It yields
// bare job IDs; detail URLs are synthesized from the detail path template.
type SearchStrategy struct {
	fetcher Fetcher
	limiter *HostLimiter
	site    SiteConfig
	filters Filters
	logger  *zap.Logger
}

// NewSearchStrategy builds the search-API strategy.
func NewSearchStrategy(fetcher Fetcher, limiter *HostLimiter, site SiteConfig, filters Filters, logger *zap.Logger) *SearchStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchStrategy{
		fetcher: fetcher,
		limiter: limiter,
		site:    site,
		filters: filters,
		logger:  logger,
	}
}

// Name identifies the strategy in logs.
func (s *SearchStrategy) Name() string { return "search-api" }

// NextBatch queries one search page under the current pagination convention.
// Two consecutive pages without new IDs abandon the convention and start the
// next one from its first page.
func (s *SearchStrategy) NextBatch(ctx context.Context, cursor Cursor) ([]Candidate, Cursor, bool, error) {
	if cursor.Stalls >= 2 || cursor.Page >= s.site.MaxPages {
		cursor.Convention++
		cursor.Page = 0
		cursor.Stalls = 0
	}
	if cursor.Convention >= len(searchConventions) {
		return nil, cursor, true, nil
	}
	conv := searchConventions[cursor.Convention]

	endpoint := s.searchURL(conv, cursor.Page)
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, endpoint); err != nil {
			return nil, cursor, false, err
		}
	}
	resp, err := s.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return nil, cursor, false, fmt.Errorf("search %s: %w", conv.name, err)
	}
	if resp.StatusCode != 200 {
		return nil, cursor, false, fmt.Errorf("search %s: status %d", conv.name, resp.StatusCode)
	}

	ids := extractSearchIDs(resp.Body)
	batch := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, Candidate{ID: id, URL: s.site.DetailURL(id)})
	}

	next := cursor
	next.Page = cursor.Page + 1
	return batch, next, false, nil
}

func (s *SearchStrategy) searchURL(conv paginationConvention, page int) string {
	size := s.site.PageSize
	if size <= 0 {
		size = 20
	}
	params := url.Values{}
	if s.filters.Keyword != "" {
		params.Set("q", s.filters.Keyword)
	}
	if s.filters.Location != "" {
		params.Set("location", s.filters.Location)
	}
	if s.filters.Category != "" {
		params.Set("category", s.filters.Category)
	}
	if s.filters.SortByPublished {
		params.Set("sort", "published")
	}
	if conv.oneBased {
		params.Set(conv.offset, strconv.Itoa(page+1))
	} else {
		params.Set(conv.offset, strconv.Itoa(page*size))
	}
	params.Set(conv.limit, strconv.Itoa(size))

	return strings.TrimRight(s.site.BaseURL, "/") + s.site.SearchPath + "?" + params.Encode()
}

// searchArrayKeys are tried in order against the response envelope; the
// upstream has renamed its job array more than once.
var searchArrayKeys = []string{"jobs", "results", "items", "data"}

// searchIDKeys are the per-item keys that may carry the job ID.
var searchIDKeys = []string{"id", "jobId", "job_id", "slug"}

// extractSearchIDs tolerantly pulls job IDs out of a search response.
// Malformed payloads yield an empty slice, never an error: a bad page is
// indistinguishable from an empty one by design.
func extractSearchIDs(body []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var envelope any
	if err := dec.Decode(&envelope); err != nil {
		return nil
	}

	var items []any
	switch v := envelope.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range searchArrayKeys {
			if arr, ok := v[key].([]any); ok {
				items = arr
				break
			}
		}
	}

	var ids []string
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range searchIDKeys {
			if id := scalarString(obj[key]); id != nil {
				ids = append(ids, *id)
				break
			}
		}
	}
	return ids
}
