// Package scraper implements the job-board scraping pipeline: candidate
// discovery across listing pages, the search API, and sitemaps, followed by
// tolerant per-page extraction that reconciles JSON-LD and CSS-selector
// signals into one JobRecord.
package scraper
