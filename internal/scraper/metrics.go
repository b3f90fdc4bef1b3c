package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// candidatesDiscovered counts candidates produced by a discovery run.
	candidatesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsift_candidates_discovered_total",
		Help: "The total number of candidate detail URLs produced by discovery.",
	})
	// pagesFetched counts detail-page fetch attempts.
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsift_pages_fetched_total",
		Help: "The total number of detail page fetch attempts.",
	})
	// fetchErrors counts detail-page fetch attempts that failed.
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsift_fetch_errors_total",
		Help: "The total number of failed detail page fetches.",
	})
	// blocksDetected counts responses flagged as block pages.
	blocksDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsift_blocks_detected_total",
		Help: "The total number of responses matching block-page heuristics.",
	})
	// recordsEmitted counts fully extracted records handed to the sink.
	recordsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsift_records_emitted_total",
		Help: "The total number of complete job records appended to the sink.",
	})
	// stubRecords counts minimal records emitted after retry exhaustion.
	stubRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsift_stub_records_total",
		Help: "The total number of stub records emitted for failed extractions.",
	})
)
