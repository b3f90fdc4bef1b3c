package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/api"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/logging"
	"github.com/jobsift/jobsift/internal/scraper"
	"github.com/jobsift/jobsift/internal/sink"
	"github.com/jobsift/jobsift/internal/snapshot"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs one full
// discovery-and-fetch cycle against the configured board.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape: discover postings, fetch details, emit records",
		Long: `Discovers candidate postings via listing pages, the search API, and the
sitemap in turn, then fetches each detail page and appends one record per
posting to the configured sink.`,
		RunE: runScrapeCommand,
	}
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	if cfg.API.Enabled {
		srv := api.NewServer(cfg.API, logger)
		go func() {
			if serr := srv.Start(); serr != nil {
				logger.Error("observability server failed", zap.Error(serr))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := srv.Shutdown(sctx); serr != nil {
				logger.Warn("observability server shutdown failed", zap.Error(serr))
			}
		}()
	}

	recordSink, sinkCloser, err := sink.New(ctx, cfg.Sink, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}
	defer func() {
		if cerr := sinkCloser.Close(); cerr != nil {
			logger.Warn("sink close failed", zap.Error(cerr))
		}
	}()

	snapshots, err := snapshot.New(ctx, cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	fetcher, err := scraper.NewCollyFetcher(scraper.FetchConfig{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTP.Timeout,
		Concurrency:  cfg.HTTP.Concurrency,
		Delay:        cfg.HTTP.Delay,
		Proxies:      cfg.HTTP.Proxies,
		CookieHeader: scraper.MergeCookies(cfg.HTTP.CookieHeader, cfg.HTTP.Cookies),
	}, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}

	candidates, err := discover(ctx, cfg, fetcher, logger)
	if err != nil {
		if errors.Is(err, scraper.ErrNoCandidates) {
			logger.Warn("no candidates discovered; nothing to do")
			return nil
		}
		return fmt.Errorf("discovery: %w", err)
	}
	logger.Info("discovery finished", zap.Int("candidates", len(candidates)))

	orch := scraper.NewOrchestrator(
		fetcher,
		scraper.NewPhraseBlockDetector(cfg.Detector.Phrases),
		scraper.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries),
		recordSink,
		snapshots,
		scraper.OrchestratorConfig{
			Quota:          cfg.Search.ResultsWanted,
			Concurrency:    cfg.HTTP.Concurrency,
			CollectDetails: cfg.Search.CollectDetails,
			FetchTimeout:   cfg.HTTP.Timeout,
			RunID:          runID,
		},
		logger,
	)
	stats := orch.Run(ctx, candidates)

	logger.Info("scrape finished",
		zap.Int("discovered", stats.Discovered),
		zap.Int("emitted", stats.Emitted),
		zap.Int("stubs", stats.Stubs),
		zap.Int("dropped", stats.Dropped),
		zap.Duration("duration", stats.Duration),
	)
	return ctx.Err()
}

func discover(ctx context.Context, cfg config.Config, fetcher scraper.Fetcher, logger *zap.Logger) ([]scraper.Candidate, error) {
	site := cfg.ScraperSite()
	limiter := scraper.NewHostLimiter(cfg.HTTP.RatePerSec, cfg.HTTP.Burst)

	state := scraper.NewDiscoveryState(cfg.Search.ResultsWanted, cfg.Search.Dedupe)
	engine := scraper.NewDiscoveryEngine(state, logger,
		scraper.NewListingStrategy(fetcher, limiter, site, logger),
		scraper.NewSearchStrategy(fetcher, limiter, site, cfg.Filters(), logger),
		scraper.NewSitemapStrategy(fetcher, limiter, site, logger),
	)
	if cfg.StartURLIsDetail() {
		engine.Seed(cfg.Search.StartURL)
	}
	return engine.Run(ctx)
}
