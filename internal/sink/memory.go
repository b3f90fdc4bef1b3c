package sink

import (
	"context"
	"sync"

	"github.com/jobsift/jobsift/internal/scraper"
)

// Memory stores appended records for inspection.
type Memory struct {
	mu      sync.RWMutex
	records []scraper.JobRecord
}

// NewMemory returns an in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Append records the record.
func (s *Memory) Append(_ context.Context, record scraper.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *Memory) Records() []scraper.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scraper.JobRecord, len(s.records))
	copy(out, s.records)
	return out
}
