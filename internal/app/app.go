package app

import (
	"context"
	"fmt"

	"github.com/docsnatch/docsnatch/internal/archive"
	"github.com/docsnatch/docsnatch/internal/cache"
	"github.com/docsnatch/docsnatch/internal/config"
	"github.com/docsnatch/docsnatch/internal/docs"
	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/fetcher"
	"github.com/docsnatch/docsnatch/internal/sheets"
	"github.com/docsnatch/docsnatch/internal/utils"
)

// App wires the export pipeline from configuration: response cache,
// stealth fetcher, the two resolvers and the archive builder. The CLI
// and the HTTP server share the same graph.
type App struct {
	Config  *config.Config
	Logger  *utils.Logger
	Builder *archive.Builder

	cache   *cache.BadgerCache
	fetcher *fetcher.Client
}

// Options contains options for creating an App
type Options struct {
	Config *config.Config
	// Verbose forces debug-level logging
	Verbose bool
	// Quiet discards all log output, for progress-bar driven runs
	Quiet bool
	// OnItem is forwarded to the archive builder for per-id progress
	OnItem func(report domain.ItemReport)
}

// New creates the component graph from the given configuration
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := "info"
	logFormat := "pretty"
	if cfg.Logging.Level != "" {
		logLevel = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		logFormat = cfg.Logging.Format
	}
	if opts.Verbose {
		logLevel = "debug"
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  logFormat,
		Verbose: opts.Verbose,
	})
	if opts.Quiet {
		logger = utils.NewNopLogger()
	}

	// The cache only exists when asked for; one-shot CLI runs skip it
	var cacheImpl *cache.BadgerCache
	if cfg.Cache.Enabled {
		cacheDir := cfg.Cache.Directory
		if cacheDir == "" {
			cacheDir = config.CacheDir()
		}
		cacheDir = utils.ExpandPath(cacheDir)

		cacheOpts := cache.DefaultOptions()
		cacheOpts.Directory = cacheDir

		var err error
		cacheImpl, err = cache.NewBadgerCache(cacheOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	// A nil *BadgerCache must not become a non-nil domain.Cache
	var fetchCache domain.Cache
	if cacheImpl != nil {
		fetchCache = cacheImpl
	}
	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:     cfg.Fetch.Timeout,
		EnableCache: cfg.Cache.Enabled,
		CacheTTL:    cfg.Cache.TTL,
		Cache:       fetchCache,
		UserAgent:   cfg.Fetch.UserAgent,
		ProxyURL:    cfg.Fetch.ProxyURL,
		Logger:      logger,
	})
	if err != nil {
		if cacheImpl != nil {
			cacheImpl.Close()
		}
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	// Create resolvers and builder
	builder := archive.NewBuilder(
		docs.NewResolver(client, logger),
		sheets.NewResolver(client, logger),
		archive.BuilderOptions{
			Workers:         cfg.Build.Workers,
			IncludeManifest: cfg.Build.IncludeManifest,
			OnItem:          opts.OnItem,
			Logger:          logger,
		},
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Builder: builder,
		cache:   cacheImpl,
		fetcher: client,
	}, nil
}

// Build produces the archive and its report for a batch of ids
func (a *App) Build(ctx context.Context, docType domain.DocType, ids []string) ([]byte, *domain.BuildReport, error) {
	return a.Builder.Build(ctx, docType, ids)
}

// Close releases all resources held by the app
func (a *App) Close() error {
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
