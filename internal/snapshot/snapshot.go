// Package snapshot archives raw detail-page bodies so extraction bugs can be
// replayed against the original HTML. Stores implement scraper.SnapshotStore.
package snapshot

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"

	"github.com/jobsift/jobsift/internal/scraper"
)

// Config selects and parameterizes the snapshot store.
type Config struct {
	// Provider is one of "none", "local", "gcs", "memory".
	Provider string `mapstructure:"provider"`
	// BaseDir roots the local store.
	BaseDir string `mapstructure:"base_dir"`
	// Bucket names the GCS bucket.
	Bucket string `mapstructure:"bucket"`
}

// New constructs the configured store. Provider "none" (or empty) returns nil,
// which the orchestrator treats as archiving disabled.
func New(ctx context.Context, cfg Config) (scraper.SnapshotStore, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "local":
		store, err := NewLocal(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		store, err := NewGCS(client, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", cfg.Provider)
	}
}
