package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/scraper"
)

// JSONL appends one JSON object per line to a file. Writes are serialized so
// concurrent workers never interleave partial lines.
type JSONL struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewJSONL opens (or creates) the output file in append mode.
func NewJSONL(path string, logger *zap.Logger) (*JSONL, error) {
	if path == "" {
		path = "jobs.jsonl"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open sink file %s: %w", path, err)
	}
	return &JSONL{file: file, logger: logger}, nil
}

// Append writes the record as one JSON line.
func (s *JSONL) Append(ctx context.Context, record scraper.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", record.JobID, err)
	}
	payload = append(payload, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(payload); err != nil {
		return fmt.Errorf("write record %s: %w", record.JobID, err)
	}
	return nil
}

// Close flushes and closes the output file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		s.logger.Warn("sink fsync failed", zap.Error(err))
	}
	return s.file.Close()
}
