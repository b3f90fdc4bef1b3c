package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memorySink collects records in memory for assertions.
type memorySink struct {
	mu      sync.Mutex
	records []JobRecord
	err     error
}

func (s *memorySink) Append(_ context.Context, record JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memorySink) all() []JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobRecord, len(s.records))
	copy(out, s.records)
	return out
}

type noRetry struct{}

func (noRetry) ShouldRetry(error, int) bool { return false }
func (noRetry) Backoff(int) time.Duration   { return 0 }

func newTestOrchestrator(f Fetcher, sink RecordSink, cfg OrchestratorConfig) *Orchestrator {
	cfg.CollectDetails = true
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = time.Second
	}
	return NewOrchestrator(f, NewPhraseBlockDetector(nil), noRetry{}, sink, nil, cfg, nil)
}

const detailHTML = `<html><body>
<h1 class="job-title">Backend Engineer</h1>
<div class="company-name">Acme</div>
<div class="job-location">Remote - Berlin</div>
<div class="job-description"><p>Build things.</p></div>
</body></html>`

func TestOrchestratorEmitsAssembledRecords(t *testing.T) {
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		return htmlPage(detailHTML), nil
	}}
	sink := &memorySink{}

	o := newTestOrchestrator(fetcher, sink, OrchestratorConfig{Quota: 2, Concurrency: 2})
	stats := o.Run(context.Background(), []Candidate{cand("1"), cand("2")})

	require.Equal(t, 2, stats.Discovered)
	require.Equal(t, 2, stats.Emitted)
	require.Zero(t, stats.Stubs)

	records := sink.all()
	require.Len(t, records, 2)
	for _, rec := range records {
		require.NotNil(t, rec.Title)
		require.Equal(t, "Backend Engineer", *rec.Title)
		require.NotNil(t, rec.IsRemote)
		require.True(t, *rec.IsRemote)
	}
}

func TestOrchestratorStubOnPersistentTimeout(t *testing.T) {
	// A candidate whose fetch never succeeds still yields exactly one record
	// with null fields but populated job_id and url.
	fetcher := &fnFetcher{fn: func(ctx context.Context, _ string) (Page, error) {
		return Page{}, context.DeadlineExceeded
	}}
	sink := &memorySink{}

	o := NewOrchestrator(fetcher, nil, NewExponentialRetryPolicy(3), sink, nil, OrchestratorConfig{
		Quota:          1,
		Concurrency:    1,
		CollectDetails: true,
		FetchTimeout:   time.Second,
	}, nil)
	stats := o.Run(context.Background(), []Candidate{cand("gone")})

	require.Equal(t, 1, stats.Stubs)
	require.Zero(t, stats.Emitted)
	require.Equal(t, 3, fetcher.callCount())

	records := sink.all()
	require.Len(t, records, 1)
	require.Equal(t, "gone", records[0].JobID)
	require.Equal(t, "https://site.example/jobs/detail/gone", records[0].URL)
	require.Nil(t, records[0].Title)
	require.Nil(t, records[0].Company)
	require.Nil(t, records[0].IsRemote)
}

func TestOrchestratorStubOnPermanentStatus(t *testing.T) {
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		return Page{StatusCode: 404}, nil
	}}
	sink := &memorySink{}

	o := newTestOrchestrator(fetcher, sink, OrchestratorConfig{Quota: 1, Concurrency: 1})
	stats := o.Run(context.Background(), []Candidate{cand("404")})

	require.Equal(t, 1, stats.Stubs)
	// 404 is a definitive answer; no retries.
	require.Equal(t, 1, fetcher.callCount())
}

func TestOrchestratorRetriesTransientStatus(t *testing.T) {
	var attempts int
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		attempts++
		if attempts < 3 {
			return Page{StatusCode: 503}, nil
		}
		return htmlPage(detailHTML), nil
	}}
	sink := &memorySink{}

	o := NewOrchestrator(fetcher, nil, NewExponentialRetryPolicy(5), sink, nil, OrchestratorConfig{
		Quota:          1,
		Concurrency:    1,
		CollectDetails: true,
		FetchTimeout:   time.Second,
	}, nil)
	stats := o.Run(context.Background(), []Candidate{cand("flaky")})

	require.Equal(t, 1, stats.Emitted)
	require.Equal(t, 3, attempts)
}

func TestOrchestratorBlockedRotatesSession(t *testing.T) {
	var attempts int
	fetcher := &fnFetcher{}
	fetcher.fn = func(_ context.Context, _ string) (Page, error) {
		attempts++
		if attempts == 1 {
			return htmlPage("<html><body>Access Denied</body></html>"), nil
		}
		return htmlPage(detailHTML), nil
	}
	sink := &memorySink{}

	o := NewOrchestrator(fetcher, NewPhraseBlockDetector(nil), NewExponentialRetryPolicy(3), sink, nil, OrchestratorConfig{
		Quota:          1,
		Concurrency:    1,
		CollectDetails: true,
		FetchTimeout:   time.Second,
	}, nil)
	stats := o.Run(context.Background(), []Candidate{cand("b")})

	require.Equal(t, 1, stats.Emitted)
	require.Equal(t, int32(1), fetcher.invalidations.Load())
}

func TestOrchestratorQuotaRespected(t *testing.T) {
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		return htmlPage(detailHTML), nil
	}}
	sink := &memorySink{}

	o := newTestOrchestrator(fetcher, sink, OrchestratorConfig{Quota: 3, Concurrency: 4})
	candidates := []Candidate{cand("1"), cand("2"), cand("3"), cand("4"), cand("5")}
	stats := o.Run(context.Background(), candidates)

	require.Equal(t, 3, stats.Emitted)
	require.Len(t, sink.all(), 3)
}

func TestOrchestratorListingOnlyMode(t *testing.T) {
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		t.Fatal("detail fetch in listing-only mode")
		return Page{}, nil
	}}
	sink := &memorySink{}

	o := NewOrchestrator(fetcher, nil, noRetry{}, sink, nil, OrchestratorConfig{
		Quota:       2,
		Concurrency: 1,
	}, nil)
	stats := o.Run(context.Background(), []Candidate{cand("1"), cand("2")})

	require.Equal(t, 2, stats.Emitted)
	require.Equal(t, 0, fetcher.callCount())

	records := sink.all()
	require.Len(t, records, 2)
	require.Equal(t, "1", records[0].JobID)
	require.Nil(t, records[0].Title)
}

func TestOrchestratorSinkErrorSurfacedOnOutcome(t *testing.T) {
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		return htmlPage(detailHTML), nil
	}}
	sink := &memorySink{err: errors.New("disk full")}

	o := newTestOrchestrator(fetcher, sink, OrchestratorConfig{Quota: 1, Concurrency: 1})
	stats := o.Run(context.Background(), []Candidate{cand("1")})

	// The record still counts as emitted; the append failure is logged.
	require.Equal(t, 1, stats.Emitted)
	require.Empty(t, sink.all())
}

type snapshotRecorder struct {
	mu    sync.Mutex
	names []string
}

func (s *snapshotRecorder) Save(_ context.Context, objectName string, _ []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, objectName)
	return "mem://" + objectName, nil
}

func TestOrchestratorSnapshotsSuccessfulPages(t *testing.T) {
	fetcher := &fnFetcher{fn: func(_ context.Context, _ string) (Page, error) {
		return htmlPage(detailHTML), nil
	}}
	sink := &memorySink{}
	snaps := &snapshotRecorder{}

	o := NewOrchestrator(fetcher, nil, noRetry{}, sink, snaps, OrchestratorConfig{
		Quota:          1,
		Concurrency:    1,
		CollectDetails: true,
		FetchTimeout:   time.Second,
		RunID:          "run-1",
	}, nil)
	o.Run(context.Background(), []Candidate{cand("77")})

	require.Len(t, snaps.names, 1)
	require.Contains(t, snaps.names[0], "run-1/77.html")
}

func TestSnapshotObjectName(t *testing.T) {
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "pages/2025-06-02/r/abc.html", snapshotObjectName("r", "abc", at))
}

func TestDiscoveryThenFetchEndToEnd(t *testing.T) {
	// Listing page exposes five detail links, the search API is empty, the
	// quota wants three: exactly three records come out.
	site := testSite()
	site.MaxPages = 1

	fetcher := &fnFetcher{fn: func(_ context.Context, rawURL string) (Page, error) {
		switch {
		case rawURL == site.ListingURL(1):
			return htmlPage(`
<div class="job-card"><a href="/jobs/detail/a1">1</a></div>
<div class="job-card"><a href="/jobs/detail/a2">2</a></div>
<div class="job-card"><a href="/jobs/detail/a3">3</a></div>
<div class="job-card"><a href="/jobs/detail/a4">4</a></div>
<div class="job-card"><a href="/jobs/detail/a5">5</a></div>`), nil
		case strings.HasPrefix(rawURL, site.BaseURL+site.SearchPath):
			return Page{StatusCode: 200, Body: []byte(`{"jobs": []}`)}, nil
		default:
			return htmlPage(detailHTML), nil
		}
	}}

	state := NewDiscoveryState(3, true)
	engine := NewDiscoveryEngine(state, nil,
		NewListingStrategy(fetcher, nil, site, nil),
		NewSearchStrategy(fetcher, nil, site, Filters{Keyword: "engineer"}, nil),
	)
	candidates, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	require.Equal(t, "a1", candidates[0].ID)

	sink := &memorySink{}
	o := newTestOrchestrator(fetcher, sink, OrchestratorConfig{Quota: 3, Concurrency: 2})
	stats := o.Run(context.Background(), candidates)

	require.Equal(t, 3, stats.Emitted)
	require.Len(t, sink.all(), 3)
}
