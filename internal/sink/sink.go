// Package sink provides RecordSink implementations: JSONL files, Postgres,
// Pub/Sub, and an in-memory sink for tests and dry runs.
package sink

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/scraper"
)

// Config selects and parameterizes the record sink.
type Config struct {
	// Provider is one of "jsonl", "postgres", "pubsub", "memory".
	Provider string         `mapstructure:"provider"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// New constructs the configured sink. The returned closer releases any
// underlying resources; it is never nil.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (scraper.RecordSink, io.Closer, error) {
	switch cfg.Provider {
	case "", "jsonl":
		s, err := NewJSONL(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return s, closerFunc(func() error { s.Close(); return nil }), nil
	case "pubsub":
		s, err := NewPubSub(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "memory":
		s := NewMemory()
		return s, closerFunc(func() error { return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unknown sink provider %q", cfg.Provider)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
