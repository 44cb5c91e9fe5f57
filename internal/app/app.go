// Package app wires configuration into the running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/fantasy-hoops/internal/config"
	"github.com/riskibarqy/fantasy-hoops/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/fantasy-hoops/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/fantasy-hoops/internal/platform/id"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/metrics"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
	"github.com/robfig/cron/v3"
)

// App owns the HTTP server and everything that must be closed with it.
type App struct {
	Server *http.Server

	cfg       config.Config
	logger    *logging.Logger
	syncSvc   *usecase.LeagueSyncService
	scheduler *cron.Cron
	closers   []func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{cfg: cfg, logger: logger}

	repos, err := a.openStorage(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	gate, err := a.newGate(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	providers, err := newProviders(cfg, logger)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	a.syncSvc = usecase.NewLeagueSyncService(
		usecase.LeagueSyncDeps{
			LeagueRepo: repos.leagues,
			RunRepo:    repos.runs,
			TokenRepo:  repos.tokens,
			Gate:       gate,
			Fantasy:    providers.fantasy,
			Schedule:   providers.schedule,
			Blobs:      providers.blobs,
			Recorder:   syncMetrics,
			IDs:        idgen.NewPrefixedGenerator("run_"),
		},
		usecase.LeagueSyncConfig{
			CategoryWorkers:   cfg.SyncCategoryWorkers,
			BackgroundTimeout: cfg.SyncBackgroundTimeout,
		},
		logger,
	)
	leagueSvc := usecase.NewLeagueService(repos.leagues)
	sweepSvc := usecase.NewSyncSweepService(
		repos.leagues,
		gate,
		a.syncSvc,
		usecase.SyncSweepConfig{Workers: cfg.SyncSweepWorkers},
		logger,
	)

	if a.scheduler, err = newSweepScheduler(cfg, sweepSvc, logger); err != nil {
		a.closeAll()
		return nil, err
	}

	verifier := anubis.NewClient(anubis.ClientConfig{
		BaseURL:        cfg.AnubisBaseURL,
		IntrospectPath: cfg.AnubisIntrospectURL,
		AdminKey:       cfg.AnubisAdminKey,
		Timeout:        cfg.AnubisTimeout,
		CacheTTL:       cfg.AnubisCacheTTL,
		CircuitBreaker: circuitBreakerConfig(cfg.AnubisCircuit),
		Logger:         logger,
	})

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	handler := httpapi.NewHandler(leagueSvc, a.syncSvc, sweepSvc, logger)
	router := httpapi.NewRouter(handler, verifier, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
		MetricsHandler:     metricsHandler,
	})

	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("app initialized",
		"storage", cfg.StorageBackend,
		"sync_gate", cfg.SyncGateBackend,
		"sweep_cron", cfg.SyncSweepCron,
		"blob_upload", cfg.AzureBlobEnabled,
		"metrics", cfg.MetricsEnabled,
	)
	return a, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops intake first, then waits for scheduled and background syncs before closing stores.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if a.scheduler != nil {
		select {
		case <-a.scheduler.Stop().Done():
		case <-ctx.Done():
			a.logger.Warn("sync sweep still running at shutdown deadline")
		}
	}
	if a.syncSvc != nil {
		waitDone := make(chan struct{})
		go func() {
			a.syncSvc.Wait()
			close(waitDone)
		}()
		select {
		case <-waitDone:
		case <-ctx.Done():
			a.logger.Warn("background syncs still running at shutdown deadline")
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("app stopped")
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
