package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecordSink receives assembled records. Implementations are at-least-once
// durable per call and perform no deduplication.
type RecordSink interface {
	Append(ctx context.Context, record JobRecord) error
}

// SnapshotStore archives raw page bodies and returns a URI.
type SnapshotStore interface {
	Save(ctx context.Context, objectName string, data []byte) (string, error)
}

// OrchestratorConfig controls the detail fetch loop.
type OrchestratorConfig struct {
	// Quota caps the number of records handed to the sink.
	Quota int
	// Concurrency bounds the worker pool.
	Concurrency int
	// CollectDetails disabled emits bare id/url records without fetching.
	CollectDetails bool
	// FetchTimeout bounds each fetch attempt.
	FetchTimeout time.Duration
	// RunID tags log lines and snapshot paths.
	RunID string
}

// RunStats summarizes one orchestrator run.
type RunStats struct {
	Discovered int
	Emitted    int
	Stubs      int
	Dropped    int
	Duration   time.Duration
}

// Orchestrator drives the bounded-concurrency fetch/extract loop over
// discovered candidates. Failures are local to a page and recorded, never
// propagated to the run.
type Orchestrator struct {
	fetcher   Fetcher
	detector  BlockDetector
	retry     RetryPolicy
	sink      RecordSink
	snapshots SnapshotStore
	cfg       OrchestratorConfig
	logger    *zap.Logger
	saved     atomic.Int64
}

// NewOrchestrator wires the fetch loop. snapshots may be nil to disable
// raw-page archiving.
func NewOrchestrator(
	fetcher Fetcher,
	detector BlockDetector,
	retry RetryPolicy,
	sink RecordSink,
	snapshots SnapshotStore,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Quota < 1 {
		cfg.Quota = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Orchestrator{
		fetcher:   fetcher,
		detector:  detector,
		retry:     retry,
		sink:      sink,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes candidates until the quota of saved records is met or the
// list is exhausted. Once the quota is reached no new work is dispatched;
// in-flight fetches finish but short-circuit without emitting.
func (o *Orchestrator) Run(ctx context.Context, candidates []Candidate) RunStats {
	started := time.Now()
	var (
		mu    sync.Mutex
		stats = RunStats{Discovered: len(candidates)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for _, cand := range candidates {
		if o.saved.Load() >= int64(o.cfg.Quota) {
			break
		}
		if gctx.Err() != nil {
			break
		}
		cand := cand
		g.Go(func() error {
			outcome := o.handle(gctx, cand)
			mu.Lock()
			switch outcome.Kind {
			case OutcomeSuccess:
				stats.Emitted++
			case OutcomeStub:
				stats.Stubs++
			case OutcomeDropped:
				stats.Dropped++
			}
			if outcome.Err != nil && outcome.Kind != OutcomeDropped {
				o.logger.Warn("candidate degraded",
					zap.String("job_id", cand.ID),
					zap.String("url", cand.URL),
					zap.Int("attempts", outcome.Attempts),
					zap.Error(outcome.Err),
				)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(started)
	return stats
}

// handle processes one candidate end to end and emits its outcome.
func (o *Orchestrator) handle(ctx context.Context, cand Candidate) Outcome {
	var outcome Outcome
	if o.cfg.CollectDetails {
		outcome = o.process(ctx, cand)
	} else {
		// Bare id/url pairs, no detail fetch.
		outcome = Outcome{Kind: OutcomeSuccess, Record: StubRecord(cand.URL)}
	}
	if outcome.Kind == OutcomeDropped {
		return outcome
	}
	if !o.reserveSlot() {
		outcome.Kind = OutcomeDropped
		return outcome
	}
	if err := o.sink.Append(ctx, outcome.Record); err != nil {
		o.logger.Error("sink append failed",
			zap.String("job_id", outcome.Record.JobID),
			zap.Error(err),
		)
		outcome.Err = err
		return outcome
	}
	switch outcome.Kind {
	case OutcomeSuccess:
		recordsEmitted.Inc()
	case OutcomeStub:
		stubRecords.Inc()
	}
	return outcome
}

// process fetches and extracts one detail page, retrying transient failures
// and degrading to a stub once the attempt budget is spent.
func (o *Orchestrator) process(ctx context.Context, cand Candidate) Outcome {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeDropped, Attempts: attempt, Err: ctx.Err()}
		}

		page, err := o.fetchOnce(ctx, cand.URL)
		if err == nil {
			switch {
			case o.detector != nil && o.detector.Blocked(page.Body):
				blocksDetected.Inc()
				o.fetcher.InvalidateSession()
				err = fmt.Errorf("fetch %s: %w", cand.URL, ErrBlocked)
			case page.StatusCode == 429 || page.StatusCode >= 500:
				err = fmt.Errorf("fetch %s: transient status %d", cand.URL, page.StatusCode)
			case page.StatusCode >= 400:
				// Permanent upstream answer; retrying cannot help.
				return Outcome{
					Kind:     OutcomeStub,
					Record:   StubRecord(cand.URL),
					Attempts: attempt + 1,
					Err:      fmt.Errorf("fetch %s: status %d", cand.URL, page.StatusCode),
				}
			default:
				o.snapshot(ctx, cand, page)
				return Outcome{
					Kind:     OutcomeSuccess,
					Record:   AssembleRecord(cand.URL, page.Body),
					Attempts: attempt + 1,
				}
			}
		}

		fetchErrors.Inc()
		if !o.retry.ShouldRetry(err, attempt+1) {
			return Outcome{
				Kind:     OutcomeStub,
				Record:   StubRecord(cand.URL),
				Attempts: attempt + 1,
				Err:      err,
			}
		}
		if !o.sleep(ctx, o.retry.Backoff(attempt)) {
			return Outcome{Kind: OutcomeDropped, Attempts: attempt + 1, Err: ctx.Err()}
		}
	}
}

func (o *Orchestrator) fetchOnce(ctx context.Context, rawURL string) (Page, error) {
	pagesFetched.Inc()
	fctx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()
	return o.fetcher.Fetch(fctx, rawURL)
}

func (o *Orchestrator) snapshot(ctx context.Context, cand Candidate, page Page) {
	if o.snapshots == nil || len(page.Body) == 0 {
		return
	}
	name := snapshotObjectName(o.cfg.RunID, cand.ID, time.Now().UTC())
	uri, err := o.snapshots.Save(ctx, name, page.Body)
	if err != nil {
		o.logger.Warn("snapshot save failed", zap.String("job_id", cand.ID), zap.Error(err))
		return
	}
	o.logger.Debug("snapshot saved", zap.String("job_id", cand.ID), zap.String("uri", uri))
}

// reserveSlot claims one unit of quota, reporting false once it is spent.
func (o *Orchestrator) reserveSlot() bool {
	for {
		cur := o.saved.Load()
		if cur >= int64(o.cfg.Quota) {
			return false
		}
		if o.saved.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func snapshotObjectName(runID, jobID string, at time.Time) string {
	return fmt.Sprintf("pages/%s/%s/%s.html", at.Format("2006-01-02"), runID, jobID)
}
