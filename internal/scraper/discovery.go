package scraper

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Cursor carries strategy progress between NextBatch calls. The engine owns
// Stalls (consecutive batches that added nothing new) and Need (remaining
// quota deficit); strategies own Page and Convention.
type Cursor struct {
	Page       int
	Convention int
	Stalls     int
	Need       int
}

// DiscoveryStrategy produces candidate batches one cursor step at a time.
// A strategy signals completion through done; the engine moves to the next
// strategy when the current one finishes or errors with the quota unmet.
type DiscoveryStrategy interface {
	Name() string
	NextBatch(ctx context.Context, cursor Cursor) (batch []Candidate, next Cursor, done bool, err error)
}

// DiscoveryState is an insertion-ordered set of candidates with a target
// cardinality. Safe for concurrent use; downstream consumers slice the first
// quota entries deterministically.
type DiscoveryState struct {
	mu      sync.Mutex
	entries []Candidate
	seen    map[string]struct{}
	dedupe  bool
	quota   int
}

// NewDiscoveryState builds state for a run. With dedupe disabled the set
// degenerates to an append-allowing collection; callers still short-circuit
// on quota.
func NewDiscoveryState(quota int, dedupe bool) *DiscoveryState {
	if quota < 1 {
		quota = 1
	}
	return &DiscoveryState{
		seen:   make(map[string]struct{}),
		dedupe: dedupe,
		quota:  quota,
	}
}

// Add inserts a candidate, reporting whether it was new. Candidates without
// an ID derive one from the URL.
func (s *DiscoveryState) Add(c Candidate) bool {
	if c.ID == "" {
		c.ID = ExtractJobID(c.URL)
	}
	if c.ID == "" && c.URL == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedupe {
		if _, dup := s.seen[c.ID]; dup {
			return false
		}
		s.seen[c.ID] = struct{}{}
	}
	s.entries = append(s.entries, c)
	return true
}

// AddBatch inserts candidates in order and returns how many were new.
func (s *DiscoveryState) AddBatch(batch []Candidate) int {
	gained := 0
	for _, c := range batch {
		if s.Add(c) {
			gained++
		}
	}
	return gained
}

// Len returns the current candidate count.
func (s *DiscoveryState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Full reports whether the quota is already covered.
func (s *DiscoveryState) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) >= s.quota
}

// Deficit returns how many candidates are still wanted.
func (s *DiscoveryState) Deficit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.quota - len(s.entries); d > 0 {
		return d
	}
	return 0
}

// Candidates returns the first-seen-ordered list truncated to quota.
func (s *DiscoveryState) Candidates() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n > s.quota {
		n = s.quota
	}
	out := make([]Candidate, n)
	copy(out, s.entries[:n])
	return out
}

// DiscoveryEngine runs the configured strategies in order until the quota is
// met or every strategy is exhausted. Discovery is sequential by design: each
// page's content determines whether to continue.
type DiscoveryEngine struct {
	strategies []DiscoveryStrategy
	state      *DiscoveryState
	logger     *zap.Logger
}

// NewDiscoveryEngine wires strategies onto shared state.
func NewDiscoveryEngine(state *DiscoveryState, logger *zap.Logger, strategies ...DiscoveryStrategy) *DiscoveryEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryEngine{
		strategies: strategies,
		state:      state,
		logger:     logger,
	}
}

// Seed inserts a directly supplied detail URL before any strategy runs. The
// seed is always kept and counted.
func (e *DiscoveryEngine) Seed(detailURL string) {
	e.state.Add(Candidate{URL: detailURL})
}

// Run executes the strategy fallthrough and returns the quota-truncated
// candidate list. It fails only on total exhaustion with zero candidates.
func (e *DiscoveryEngine) Run(ctx context.Context) ([]Candidate, error) {
	for _, strategy := range e.strategies {
		if e.state.Full() {
			break
		}
		e.runStrategy(ctx, strategy)
		if ctx.Err() != nil {
			break
		}
	}

	candidates := e.state.Candidates()
	if len(candidates) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoCandidates
	}
	candidatesDiscovered.Add(float64(len(candidates)))
	return candidates, nil
}

func (e *DiscoveryEngine) runStrategy(ctx context.Context, strategy DiscoveryStrategy) {
	log := e.logger.With(zap.String("strategy", strategy.Name()))
	cursor := Cursor{}
	for !e.state.Full() && ctx.Err() == nil {
		cursor.Need = e.state.Deficit()
		batch, next, done, err := strategy.NextBatch(ctx, cursor)
		if err != nil {
			log.Warn("strategy batch failed, falling through", zap.Error(err))
			return
		}
		gained := e.state.AddBatch(batch)
		log.Debug("strategy batch",
			zap.Int("page", cursor.Page),
			zap.Int("returned", len(batch)),
			zap.Int("new", gained),
			zap.Int("total", e.state.Len()),
		)
		// Zero new items is treated as a stop signal. This conflates real
		// pagination exhaustion with a transiently empty page, so a single
		// skipped page can end a strategy early; known false-stop risk.
		if gained == 0 {
			next.Stalls = cursor.Stalls + 1
		} else {
			next.Stalls = 0
		}
		if done {
			return
		}
		cursor = next
	}
}
