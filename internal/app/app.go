package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/unknproject/loader/internal/catalog"
	"github.com/unknproject/loader/internal/config"
	"github.com/unknproject/loader/internal/domain"
	"github.com/unknproject/loader/internal/engine"
	"github.com/unknproject/loader/internal/fetch"
	"github.com/unknproject/loader/internal/inject"
	"github.com/unknproject/loader/internal/logbuf"
	"github.com/unknproject/loader/internal/metrics"
	"github.com/unknproject/loader/internal/presence"
	"github.com/unknproject/loader/internal/process"
	"github.com/unknproject/loader/internal/server"
	"github.com/unknproject/loader/internal/storage"
)

const idleDetails = "Selecting a hack"

// Options adjust how the App is wired. The zero value is valid.
type Options struct {
	// Stderr, when set, also receives human-readable log lines.
	Stderr io.Writer

	// Observer is told to repaint whenever the session status changes.
	Observer domain.Observer

	// CountLaunch records this start in the launch statistics.
	CountLaunch bool
}

// App owns every long-lived component of the loader. It replaces any
// process-wide state: callers reach the logger, catalog and orchestrator
// through it.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	logFile io.Closer
	logs    *logbuf.Buffer

	store    *storage.Store
	metrics  *metrics.Prometheus
	catalog  *catalog.Registry
	helpers  *inject.Helpers
	locator  *process.Locator
	orch     *engine.Orchestrator
	presence *presence.Announcer

	httpServer *server.Server
}

// New creates and wires all loader subsystems.
func New(cfg *config.Config, opts Options) (*App, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logs := logbuf.New(logbuf.DefaultCapacity)
	extra := []slog.Handler{logs.Handler(level)}
	if opts.Stderr != nil {
		extra = append(extra, slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: level}))
	}

	logger, logFile, err := config.NewLogger(cfg, config.AppName, extra...)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := storage.NewStore(cfg.Dir())
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if opts.CountLaunch {
		if err := store.IncrementOpened(); err != nil {
			logger.Warn("failed to update statistics", "err", err)
		}
	}

	prom := metrics.NewPrometheus(config.AppName)

	fetcher := fetch.New(fetch.Config{
		PrimaryURL:  cfg.CDNEndpoint,
		FallbackURL: cfg.CDNFallbackEndpoint,
		Retries:     cfg.FetchRetries,
		Timeout:     cfg.FetchTimeout,
	}, prom, logger)

	helpers := inject.NewHelpers(cfg.Dir(), map[domain.Arch]string{
		domain.ArchX86: cfg.HelperX86,
		domain.ArchX64: cfg.HelperX64,
	}, fetcher, logger)

	registry := catalog.NewRegistry(
		catalog.NewClient(cfg.APIEndpoint, cfg.Dir(), cfg.LowercaseHacks, logger),
		logger,
	)

	var (
		ann       *presence.Announcer
		announcer domain.Announcer = presence.Disabled{}
	)
	if !cfg.DisableRPC {
		ann = presence.New(presence.LogSink{Logger: logger}, logger)
		ann.Update("v"+config.Version, idleDetails)
		announcer = ann
	}

	locator := process.NewLocator(logger)

	orch := engine.New(engine.Config{SkipDelay: cfg.SkipInjectsDelay}, engine.Deps{
		Fetcher:   fetcher,
		Locator:   locator,
		Standard:  inject.NewStandard(logger),
		Runner:    inject.NewManualMapper(logger),
		Helpers:   helpers,
		Observer:  opts.Observer,
		Announcer: announcer,
		Stats:     store,
		Metrics:   prom,
	}, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		logFile:  logFile,
		logs:     logs,
		store:    store,
		metrics:  prom,
		catalog:  registry,
		helpers:  helpers,
		locator:  locator,
		orch:     orch,
		presence: ann,
	}, nil
}

func (a *App) Config() *config.Config             { return a.cfg }
func (a *App) Logger() *slog.Logger               { return a.logger }
func (a *App) Logs() *logbuf.Buffer               { return a.logs }
func (a *App) Store() *storage.Store              { return a.store }
func (a *App) Catalog() *catalog.Registry         { return a.catalog }
func (a *App) Helpers() *inject.Helpers           { return a.helpers }
func (a *App) Orchestrator() *engine.Orchestrator { return a.orch }

// Run loads the catalog and serves the control API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.catalog.Refresh(ctx); err != nil {
		a.logger.Warn("starting without a catalog", "err", err)
	}

	a.cfg.Watch(a.configChanged, func(err error) {
		a.logger.Error("ignoring invalid config change", "err", err)
	})

	handler := server.NewHandler(a.orch, a.catalog, a.helpers, a.locator, a.store, a.logs, a.presence, a.metrics.Handler(), a.logger)
	a.httpServer = server.New(a.cfg.ListenAddr, a.cfg.ControlToken, handler, a.logger)

	a.logger.Info("loader ready",
		"version", config.Version,
		"config", a.cfg.Path(),
		"listen", a.cfg.ListenAddr,
		"payloads", a.catalog.List().Len(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.Start()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down loader")
		return a.shutdown()
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

// configChanged reports edited keys. Components keep the values they were
// built with until the next start.
func (a *App) configChanged(next *config.Config) {
	changed := config.Diff(a.cfg, next)
	if len(changed) == 0 {
		return
	}
	a.logger.Info("config file changed, restart to apply", "keys", slices.Sorted(maps.Keys(changed)))
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", "err", err)
		}
	}

	a.logger.Info("loader stopped")
	return nil
}

// Close waits for a running session and releases the log file.
func (a *App) Close() error {
	a.orch.Close()
	if a.presence != nil {
		a.presence.Close()
	}
	return a.logFile.Close()
}
