package scraper

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fnFetcher is a function-backed Fetcher for tests.
type fnFetcher struct {
	fn            func(ctx context.Context, rawURL string) (Page, error)
	mu            sync.Mutex
	calls         []string
	invalidations atomic.Int32
}

func (f *fnFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()
	return f.fn(ctx, rawURL)
}

func (f *fnFetcher) InvalidateSession() {
	f.invalidations.Add(1)
}

func (f *fnFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func htmlPage(body string) Page {
	return Page{StatusCode: http.StatusOK, Headers: http.Header{}, Body: []byte(body)}
}

// fixedStrategy returns canned batches in order, then reports done.
type fixedStrategy struct {
	name    string
	batches [][]Candidate
}

func (s *fixedStrategy) Name() string { return s.name }

func (s *fixedStrategy) NextBatch(_ context.Context, cursor Cursor) ([]Candidate, Cursor, bool, error) {
	if cursor.Page >= len(s.batches) {
		return nil, cursor, true, nil
	}
	batch := s.batches[cursor.Page]
	next := cursor
	next.Page++
	return batch, next, next.Page >= len(s.batches), nil
}

func cand(id string) Candidate {
	return Candidate{ID: id, URL: "https://site.example/jobs/detail/" + id}
}

func TestDiscoveryStateDedupe(t *testing.T) {
	state := NewDiscoveryState(10, true)
	require.True(t, state.Add(cand("1")))
	require.False(t, state.Add(cand("1")))
	require.True(t, state.Add(cand("2")))
	require.Equal(t, 2, state.Len())
}

func TestDiscoveryStateDerivesIDFromURL(t *testing.T) {
	state := NewDiscoveryState(10, true)
	require.True(t, state.Add(Candidate{URL: "https://site.example/jobs/detail/42"}))
	require.False(t, state.Add(Candidate{ID: "42", URL: "https://site.example/jobs/detail/42"}))
}

func TestDiscoveryStateDedupeDisabled(t *testing.T) {
	state := NewDiscoveryState(10, false)
	require.True(t, state.Add(cand("1")))
	require.True(t, state.Add(cand("1")))
	require.Equal(t, 2, state.Len())
}

func TestDiscoveryEngineUnionCappedAndOrdered(t *testing.T) {
	// Two strategies with overlapping IDs: the result is the union in
	// first-seen order, capped at quota.
	first := &fixedStrategy{name: "a", batches: [][]Candidate{{cand("1"), cand("2")}}}
	second := &fixedStrategy{name: "b", batches: [][]Candidate{{cand("2"), cand("3"), cand("4")}}}

	state := NewDiscoveryState(3, true)
	engine := NewDiscoveryEngine(state, nil, first, second)

	got, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "1", got[0].ID)
	require.Equal(t, "2", got[1].ID)
	require.Equal(t, "3", got[2].ID)
}

func TestDiscoveryEngineStopsAtQuota(t *testing.T) {
	first := &fixedStrategy{name: "a", batches: [][]Candidate{{cand("1"), cand("2"), cand("3")}}}
	second := &fixedStrategy{name: "b", batches: [][]Candidate{{cand("9")}}}

	state := NewDiscoveryState(2, true)
	engine := NewDiscoveryEngine(state, nil, first, second)

	got, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "1", got[0].ID)
	require.Equal(t, "2", got[1].ID)
}

func TestDiscoveryEngineExhaustion(t *testing.T) {
	empty := &fixedStrategy{name: "a"}
	state := NewDiscoveryState(5, true)
	engine := NewDiscoveryEngine(state, nil, empty)

	_, err := engine.Run(context.Background())
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestDiscoveryEngineSeedAlwaysKept(t *testing.T) {
	overlap := &fixedStrategy{name: "a", batches: [][]Candidate{{cand("7"), cand("8")}}}
	state := NewDiscoveryState(2, true)
	engine := NewDiscoveryEngine(state, nil, overlap)
	engine.Seed("https://site.example/jobs/detail/7")

	got, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "7", got[0].ID)
	require.Equal(t, "8", got[1].ID)
}

func TestDiscoveryEngineFallsThroughOnStrategyError(t *testing.T) {
	failing := &errorStrategy{}
	backup := &fixedStrategy{name: "b", batches: [][]Candidate{{cand("1")}}}
	state := NewDiscoveryState(1, true)
	engine := NewDiscoveryEngine(state, nil, failing, backup)

	got, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

type errorStrategy struct{}

func (s *errorStrategy) Name() string { return "failing" }

func (s *errorStrategy) NextBatch(_ context.Context, cursor Cursor) ([]Candidate, Cursor, bool, error) {
	return nil, cursor, false, context.DeadlineExceeded
}
