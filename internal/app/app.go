// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/jobrunner/atlas/internal/adapters/geojson"
	"github.com/jobrunner/atlas/internal/adapters/geopackage"
	"github.com/jobrunner/atlas/internal/adapters/globe"
	httpAdapter "github.com/jobrunner/atlas/internal/adapters/http"
	"github.com/jobrunner/atlas/internal/adapters/metrics"
	"github.com/jobrunner/atlas/internal/adapters/planar"
	"github.com/jobrunner/atlas/internal/adapters/storage"
	"github.com/jobrunner/atlas/internal/adapters/watcher"
	"github.com/jobrunner/atlas/internal/application"
	"github.com/jobrunner/atlas/internal/config"
	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/output"
	"github.com/jobrunner/atlas/internal/results"
)

// headlessRuntime is the part of a headless engine runtime the application drives.
type headlessRuntime interface {
	MarkReady()
	Click(lon, lat float64, shift bool)
	Hover(lon, lat float64)
}

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       output.ObjectStorage
	Provider      output.MapProvider
	Runtime       headlessRuntime
	Active        *results.ActiveSet
	Selection     *results.Selection
	Layers        *application.LayerService
	Controller    *application.MapController
	Loader        *application.ResultLoader
	ReloadService *application.ReloadService
	HealthService *application.HealthService
	HTTPServer    *httpAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector

	shutdownOnce sync.Once
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Active:    results.NewActiveSet(),
		Selection: results.NewSelection(),
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector(cfg.Metrics.Namespace)
		metricsCollector = app.Metrics
	}

	if err := app.initEngine(cfg.Engine); err != nil {
		return nil, err
	}

	app.Layers = application.NewLayerService(app.Provider, metricsCollector, logger)
	n, err := app.Layers.Load(cfg.Layers)
	if err != nil {
		// Failed layers are skipped; the map still works with the rest.
		logger.Warn("some imagery layers could not be created", "error", err)
	}
	logger.Info("imagery layers loaded", "count", n, "configured", len(cfg.Layers))

	emphasis, err := domain.ParseColor(cfg.Clustering.SelectedColor)
	if err != nil {
		return nil, fmt.Errorf("clustering selected color: %w", err)
	}
	app.Controller = application.NewMapController(
		app.Provider,
		app.Layers,
		app.Active,
		app.Selection,
		application.ControllerOptions{
			Clustering: application.ClusterOptions{
				Enabled:         cfg.Clustering.Enabled,
				ThresholdMeters: cfg.Clustering.ThresholdMeters,
				Emphasis:        emphasis,
			},
			StrictHandles: cfg.Render.StrictHandles,
		},
		metricsCollector,
		logger,
	)
	app.Controller.OnActivate(func(ids []string) {
		logger.Info("results activated", "ids", ids)
	})

	if err := app.initSources(ctx, metricsCollector); err != nil {
		return nil, err
	}

	app.ReloadService = application.NewReloadService(app.Loader, app.Controller, cfg.Results.ReloadInterval, logger)
	app.HealthService = application.NewHealthService(app.Provider, app.Active, app.Layers, app.Controller)

	if cfg.Server.Enabled {
		opts := httpAdapter.Options{
			Reload:  app.ReloadService,
			Pointer: app.Runtime,
		}
		if app.Metrics != nil {
			opts.Metrics = app.Metrics
			opts.MetricsPath = cfg.Metrics.Path
		}
		app.HTTPServer = httpAdapter.NewServer(
			cfg.Server,
			app.Controller,
			app.Layers,
			app.HealthService,
			opts,
			logger,
		)
	}

	if cfg.Watcher.Enabled {
		app.initWatcher()
	}

	return app, nil
}

// initEngine creates the headless runtime and map provider for the configured engine.
func (a *App) initEngine(cfg config.EngineConfig) error {
	switch domain.EngineKind(cfg.Kind) {
	case domain.EnginePlanar:
		rt := planar.NewHeadless()
		if cfg.HitTolerance > 0 {
			rt.SetHitTolerance(cfg.HitTolerance)
		}
		a.Runtime = rt
		a.Provider = planar.NewAdapter(rt)
	case domain.EngineGlobe:
		rt := globe.NewHeadless()
		a.Runtime = rt
		a.Provider = globe.NewAdapter(rt)
	default:
		return &domain.ConfigurationError{Field: "engine.kind", Value: cfg.Kind, Message: "unknown map engine"}
	}
	a.Logger.Info("map engine created", "engine", cfg.Kind)
	return nil
}

// initSources creates the result sources and the loader merging them.
func (a *App) initSources(ctx context.Context, mc output.MetricsCollector) error {
	rc := a.Config.Results

	defaultColor, err := domain.ParseColor(a.Config.Render.DefaultColor)
	if err != nil {
		return fmt.Errorf("render default color: %w", err)
	}

	needStorage := rc.Source == "storage" || rc.GeoPackage.Key != ""
	if needStorage {
		store, err := storage.New(ctx, storageConfig(rc.Storage))
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		a.Storage = store
	}

	var source output.ResultSource
	switch rc.Source {
	case "storage":
		source = application.NewStorageSource(a.Storage, geojson.NewDecoder(defaultColor), mc, a.Logger)
	case "geopackage":
		source = geopackage.NewSource(geopackage.Options{
			Path:         rc.GeoPackage.Path,
			Table:        rc.GeoPackage.Table,
			IDColumn:     rc.GeoPackage.IDColumn,
			ColorColumn:  rc.GeoPackage.ColorColumn,
			DefaultColor: defaultColor,
			Storage:      a.Storage,
			Key:          rc.GeoPackage.Key,
		}, a.Logger)
	default:
		return &domain.ConfigurationError{Field: "results.source", Value: rc.Source, Message: "unknown result source"}
	}

	a.Loader = application.NewResultLoader([]output.ResultSource{source}, mc, a.Logger)
	return nil
}

// initWatcher watches local result files and reloads on change. Remote storage
// relies on the periodic reload instead.
func (a *App) initWatcher() {
	rc := a.Config.Results

	var cfg watcher.Config
	switch {
	case rc.Source == "storage" && storageConfig(rc.Storage).Type == output.StorageTypeLocal:
		cfg = watcher.Config{
			Paths:  []string{rc.Storage.LocalPath},
			Filter: storage.IsResultObject,
		}
	case rc.Source == "geopackage" && rc.GeoPackage.Key == "":
		target := filepath.Clean(rc.GeoPackage.Path)
		cfg = watcher.Config{
			Paths:  []string{filepath.Dir(target)},
			Filter: func(path string) bool { return filepath.Clean(path) == target },
		}
	default:
		return
	}
	cfg.Debounce = a.Config.Watcher.Debounce

	w, err := watcher.New(cfg, a.handleFileEvents, a.Logger)
	if err != nil {
		a.Logger.Warn("failed to initialize file watcher", "error", err)
		return
	}
	a.Watcher = w
}

// storageConfig maps the storage configuration onto the adapter configuration.
func storageConfig(cfg config.StorageConfig) storage.Config {
	t := output.StorageType(cfg.Type)
	if t == "" {
		t = output.StorageTypeLocal
	}
	return storage.Config{
		Type:      t,
		LocalPath: cfg.LocalPath,
		S3: storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		},
		Azure: storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		},
		HTTP: storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		},
	}
}

// Prime loads the initial results and signals the first render. A failed load
// leaves the map empty.
func (a *App) Prime(ctx context.Context) error {
	a.Controller.Start()

	result, err := a.ReloadService.Reload(ctx)
	a.Runtime.MarkReady()
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}
	a.Logger.Info("results loaded", "count", result.Loaded)
	return nil
}

// Start starts all application components. It blocks while the HTTP server
// runs, or until ctx is done when the server is disabled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Prime(ctx); err != nil {
		a.Logger.Warn("initial load failed", "error", err)
	}

	a.ReloadService.Start(ctx)

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.HTTPServer == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.HTTPServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.shutdownOnce.Do(func() {
		a.Logger.Info("shutting down application")

		if a.Watcher != nil {
			_ = a.Watcher.Stop()
		}

		a.ReloadService.Stop()

		if a.HTTPServer != nil {
			if err := a.HTTPServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
			}
		}

		if err := a.Controller.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing map: %w", err))
		}
		a.Provider.Destroy()
	})
	return errors.Join(errs...)
}

// handleFileEvents reloads results after a batch of file changes.
func (a *App) handleFileEvents(ctx context.Context, events []watcher.Event) error {
	for _, ev := range events {
		a.Logger.Debug("file event", "path", ev.Path, "operation", ev.Operation.String())
	}

	result, err := a.ReloadService.Reload(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("results reloaded after file change",
		"files", len(events),
		"loaded", result.Loaded,
		"added", result.Added,
		"removed", result.Removed,
	)
	return nil
}
