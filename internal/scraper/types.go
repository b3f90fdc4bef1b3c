package scraper

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// JobRecord is the output unit handed to the sink. Every field is either a
// non-empty value or nil; never an empty string, never absent from the
// serialized shape.
type JobRecord struct {
	JobID           string  `json:"job_id"`
	URL             string  `json:"url"`
	Title           *string `json:"title"`
	Company         *string `json:"company"`
	Location        *string `json:"location"`
	IsRemote        *bool   `json:"is_remote"`
	RemoteType      *string `json:"remote_type"`
	Region          *string `json:"region"`
	Salary          *string `json:"salary"`
	JobType         *string `json:"job_type"`
	DatePosted      *string `json:"date_posted"`
	DescriptionHTML *string `json:"description_html"`
	DescriptionText *string `json:"description_text"`
}

// RawJobData accumulates partially extracted fields while merging structured
// and unstructured signals. A nil field means "not yet determined", which is
// distinct from JobRecord's explicit null.
type RawJobData struct {
	Title           *string
	Company         *string
	Location        *string
	Salary          *string
	JobType         *string
	DatePosted      *string
	DescriptionHTML *string
}

// Candidate is one discovered job: its canonical ID and absolute detail URL.
type Candidate struct {
	ID  string `json:"job_id"`
	URL string `json:"url"`
}

// Page is the result of fetching a single URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher retrieves a URL. Implementations own transport concerns such as
// connection pooling, proxies, and cookies. InvalidateSession discards any
// accumulated session state (cookies, sticky proxy) before the next fetch.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
	InvalidateSession()
}

// BlockDetector reports whether a fetched body is a block/verification page
// rather than real content.
type BlockDetector interface {
	Blocked(body []byte) bool
}

// RetryPolicy decides whether a failed fetch is worth another attempt and how
// long to wait before it.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// OutcomeKind classifies what happened to a single candidate URL.
type OutcomeKind int

// Per-URL outcome kinds.
const (
	// OutcomeSuccess means a fully extracted record was emitted.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeStub means extraction ultimately failed and a minimal id/url
	// record was emitted to keep the run's accounting consistent.
	OutcomeStub
	// OutcomeDropped means nothing was emitted because the quota was already
	// met when the result arrived.
	OutcomeDropped
)

// Outcome is the explicit result of processing one candidate.
type Outcome struct {
	Kind     OutcomeKind
	Record   JobRecord
	Attempts int
	Err      error
}

// ErrNoCandidates is returned by the discovery engine when every strategy is
// exhausted without producing a single candidate. It is the only discovery
// failure that surfaces to the run level.
var ErrNoCandidates = errors.New("discovery produced no candidates")

// ErrBlocked marks a fetch whose body matched the block-page heuristics. It
// is treated as transient; the session is invalidated before the retry.
var ErrBlocked = errors.New("block page detected")
