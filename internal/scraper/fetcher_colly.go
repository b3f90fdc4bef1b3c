package scraper

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"
	"go.uber.org/zap"
)

// FetchConfig captures the transport knobs for the Colly-backed fetcher.
type FetchConfig struct {
	UserAgent    string
	Timeout      time.Duration
	Concurrency  int
	Delay        time.Duration
	Proxies      []string
	CookieHeader string
}

// Cookie is one structured cookie pair from configuration.
type Cookie struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// MergeCookies folds a raw Cookie header and a structured cookie list into a
// single request header value. Structured pairs are appended after the raw
// header in declaration order.
func MergeCookies(rawHeader string, pairs []Cookie) string {
	parts := make([]string, 0, len(pairs)+1)
	if trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rawHeader), ";")); trimmed != "" {
		parts = append(parts, trimmed)
	}
	for _, c := range pairs {
		if c.Name == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// CollyFetcher implements the Fetcher interface using the Colly collector.
type CollyFetcher struct {
	cfg    FetchConfig
	logger *zap.Logger

	mu   sync.Mutex
	base *colly.Collector
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg FetchConfig, logger *zap.Logger) (*CollyFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &CollyFetcher{cfg: cfg, logger: logger}
	base, err := f.buildCollector()
	if err != nil {
		return nil, err
	}
	f.base = base
	return f, nil
}

func (f *CollyFetcher) buildCollector() (*colly.Collector, error) {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(f.cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       maxInt(2, f.cfg.Concurrency*2),
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: f.cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(f.cfg.Timeout)

	if len(f.cfg.Proxies) > 0 {
		switcher, err := proxy.RoundRobinProxySwitcher(f.cfg.Proxies...)
		if err != nil {
			return nil, err
		}
		base.SetProxyFunc(switcher)
	}

	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: maxInt(1, f.cfg.Concurrency),
		Delay:       f.cfg.Delay,
	}); err != nil {
		return nil, err
	}
	return base, nil
}

// InvalidateSession discards the collector, and with it any accumulated
// cookies and sticky transport identity, so the next fetch starts fresh.
func (f *CollyFetcher) InvalidateSession() {
	rebuilt, err := f.buildCollector()
	if err != nil {
		f.logger.Warn("session rebuild failed, keeping previous collector", zap.Error(err))
		return
	}
	f.mu.Lock()
	f.base = rebuilt
	f.mu.Unlock()
	f.logger.Debug("fetch session invalidated")
}

// Fetch retrieves a page via the configured Colly collector. Non-2xx
// responses are returned as pages with their status code, not errors.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	f.mu.Lock()
	collector := f.base.Clone()
	f.mu.Unlock()

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	started := time.Now()
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		if f.cfg.CookieHeader != "" {
			r.Headers.Set("Cookie", f.cfg.CookieHeader)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{page: pageFromResponse(rawURL, r, started)})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			send(fetchResult{page: pageFromResponse(rawURL, r, started)})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}

	// Wait in a goroutine so the caller's deadline bounds the fetch even
	// when it is shorter than the collector's own request timeout.
	waited := make(chan struct{})
	go func() {
		collector.Wait()
		close(waited)
	}()
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	case <-waited:
	}

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}

func pageFromResponse(rawURL string, r *colly.Response, started time.Time) Page {
	headers := http.Header{}
	if r.Headers != nil {
		for k, v := range *r.Headers {
			cp := make([]string, len(v))
			copy(cp, v)
			headers[k] = cp
		}
	}
	finalURL := rawURL
	if r.Request != nil && r.Request.URL != nil {
		finalURL = r.Request.URL.String()
	}
	return Page{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       append([]byte{}, r.Body...),
		Duration:   time.Since(started),
	}
}

type fetchResult struct {
	page Page
	err  error
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
