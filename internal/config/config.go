// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobsift/jobsift/internal/api"
	"github.com/jobsift/jobsift/internal/scraper"
	"github.com/jobsift/jobsift/internal/sink"
	"github.com/jobsift/jobsift/internal/snapshot"
)

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Search   SearchConfig    `mapstructure:"search"`
	Site     SiteConfig      `mapstructure:"site"`
	HTTP     HTTPConfig      `mapstructure:"http"`
	Detector DetectorConfig  `mapstructure:"detector"`
	Sink     sink.Config     `mapstructure:"sink"`
	Snapshot snapshot.Config `mapstructure:"snapshot"`
	API      api.Config      `mapstructure:"api"`
	Logging  LoggingConfig   `mapstructure:"logging"`
}

// SearchConfig holds the query a run executes.
type SearchConfig struct {
	Keyword         string `mapstructure:"keyword"`
	Location        string `mapstructure:"location"`
	Category        string `mapstructure:"category"`
	SortByPublished bool   `mapstructure:"sort_by_published"`
	ResultsWanted   int    `mapstructure:"results_wanted"`
	StartURL        string `mapstructure:"start_url"`
	CollectDetails  bool   `mapstructure:"collect_details"`
	Dedupe          bool   `mapstructure:"dedupe"`
}

// SiteConfig describes the target job board.
type SiteConfig struct {
	BaseURL       string   `mapstructure:"base_url"`
	ListingPath   string   `mapstructure:"listing_path"`
	SearchPath    string   `mapstructure:"search_path"`
	SitemapPath   string   `mapstructure:"sitemap_path"`
	DetailPath    string   `mapstructure:"detail_path"`
	CardSelectors []string `mapstructure:"card_selectors"`
	PageSize      int      `mapstructure:"page_size"`
	MaxPages      int      `mapstructure:"max_pages"`
}

// HTTPConfig configures the fetcher and retry behavior.
type HTTPConfig struct {
	UserAgent    string           `mapstructure:"user_agent"`
	Timeout      time.Duration    `mapstructure:"timeout"`
	Concurrency  int              `mapstructure:"concurrency"`
	Delay        time.Duration    `mapstructure:"delay"`
	RatePerSec   float64          `mapstructure:"rate_per_sec"`
	Burst        int              `mapstructure:"burst"`
	MaxRetries   int              `mapstructure:"max_retries"`
	Proxies      []string         `mapstructure:"proxies"`
	CookieHeader string           `mapstructure:"cookie_header"`
	Cookies      []scraper.Cookie `mapstructure:"cookies"`
}

// DetectorConfig overrides the block-page phrase list.
type DetectorConfig struct {
	Phrases []string `mapstructure:"phrases"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("jobsift")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default file is fine; defaults and env still apply.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.results_wanted", 100)
	v.SetDefault("search.collect_details", true)
	v.SetDefault("search.dedupe", true)
	v.SetDefault("site.listing_path", "/jobs?page=%d")
	v.SetDefault("site.search_path", "/api/jobs/search")
	v.SetDefault("site.sitemap_path", "/sitemap.xml")
	v.SetDefault("site.detail_path", "/jobs/")
	v.SetDefault("site.page_size", 20)
	v.SetDefault("site.max_pages", 50)
	v.SetDefault("http.user_agent", "jobsift/0.1")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.concurrency", 8)
	v.SetDefault("http.delay", "500ms")
	v.SetDefault("http.rate_per_sec", 2.0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("sink.provider", "jsonl")
	v.SetDefault("sink.path", "jobs.jsonl")
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", ":9090")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL")
	}
	if c.Search.ResultsWanted <= 0 {
		return fmt.Errorf("search.results_wanted must be > 0")
	}
	if c.HTTP.Concurrency <= 0 {
		return fmt.Errorf("http.concurrency must be > 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Site.MaxPages <= 0 {
		return fmt.Errorf("site.max_pages must be > 0")
	}
	return nil
}

// ScraperSite converts the loaded site block into the scraper's site config.
func (c Config) ScraperSite() scraper.SiteConfig {
	return scraper.SiteConfig{
		BaseURL:       c.Site.BaseURL,
		ListingPath:   c.Site.ListingPath,
		SearchPath:    c.Site.SearchPath,
		SitemapPath:   c.Site.SitemapPath,
		DetailPath:    c.Site.DetailPath,
		CardSelectors: c.Site.CardSelectors,
		PageSize:      c.Site.PageSize,
		MaxPages:      c.Site.MaxPages,
	}
}

// Filters converts the search block into discovery filters, folding in any
// query parameters carried by a listing-style start URL.
func (c Config) Filters() scraper.Filters {
	f := scraper.Filters{
		Keyword:         c.Search.Keyword,
		Location:        c.Search.Location,
		Category:        c.Search.Category,
		SortByPublished: c.Search.SortByPublished,
	}
	if c.Search.StartURL == "" || c.StartURLIsDetail() {
		return f
	}
	u, err := url.Parse(c.Search.StartURL)
	if err != nil {
		return f
	}
	q := u.Query()
	if f.Keyword == "" {
		for _, key := range []string{"q", "keyword", "search"} {
			if val := q.Get(key); val != "" {
				f.Keyword = val
				break
			}
		}
	}
	if f.Location == "" {
		f.Location = q.Get("location")
	}
	if f.Category == "" {
		f.Category = q.Get("category")
	}
	return f
}

// StartURLIsDetail reports whether the start URL points at a single job
// posting rather than a listing.
func (c Config) StartURLIsDetail() bool {
	if c.Search.StartURL == "" {
		return false
	}
	return c.ScraperSite().DetailURLPattern().MatchString(c.Search.StartURL)
}
