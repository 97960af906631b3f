package commands

import (
	"context"
	"fmt"

	"github.com/aerynos/carve/pkg/config"
	"github.com/aerynos/carve/pkg/engine"
	"github.com/aerynos/carve/pkg/sizing"
	"github.com/aerynos/carve/pkg/storage"
	"github.com/aerynos/carve/pkg/stores"
	"github.com/aerynos/carve/pkg/strategy"
	"github.com/aerynos/carve/pkg/telemetry"
)

// app bundles the wired components commands operate on: settings, logger,
// metrics, loaded strategies, the seeded backend and the optional report
// store.
type app struct {
	settings *config.Settings
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	loader   *config.Loader
	registry *engine.Registry
	backend  *storage.MemoryBackend
	store    stores.Store
}

// newApp loads the configuration and wires every component a command
// needs. Strategy paths from the command line extend the configured ones.
func newApp(ctx context.Context) (*app, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		settings.LogLevel = "debug"
	}

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:       settings.Metrics.Enabled,
		ListenAddress: settings.Metrics.ListenAddress,
		Namespace:     "carve",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	if err := metrics.StartMetricsServer(); err != nil {
		return nil, err
	}

	a := &app{
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		loader:   config.NewLoader(logger),
		registry: engine.NewRegistry(),
		backend:  storage.NewMemoryBackend(),
	}

	if err := a.seedDisks(); err != nil {
		return nil, err
	}

	if err := a.loadStrategies(); err != nil {
		return nil, err
	}

	if settings.Database.Path != "" {
		store, err := stores.NewSQLiteStore(stores.Config{Path: settings.Database.Path})
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		a.store = store
	}

	return a, nil
}

// close releases the app's resources.
func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// strategyLoadPaths merges the configured paths with the --strategies flag.
func (a *app) strategyLoadPaths() []string {
	paths := append([]string(nil), a.settings.StrategyPaths...)
	return append(paths, strategyPaths...)
}

// seedDisks populates the backend with the configured disk inventory.
func (a *app) seedDisks() error {
	for _, disk := range a.settings.Disks {
		size, err := sizing.ParseQuantity(disk.Size)
		if err != nil {
			return fmt.Errorf("disk %q: %w", disk.Name, err)
		}
		a.backend.AddDisk(disk.Name, size.Bytes())
	}
	return nil
}

// loadStrategies parses the strategy documents and registers them.
func (a *app) loadStrategies() error {
	paths := a.strategyLoadPaths()
	if len(paths) == 0 {
		return nil
	}
	strategies, err := a.loader.LoadPaths(paths)
	if err != nil {
		return err
	}
	return a.registry.RegisterAll(strategies)
}

// reloadStrategies swaps in a fresh registry, used by plan --watch.
func (a *app) reloadStrategies(strategies []*strategy.Strategy) error {
	registry := engine.NewRegistry()
	if err := registry.RegisterAll(strategies); err != nil {
		return err
	}
	a.registry = registry
	return nil
}

// executor builds an executor over the app's registry and backend.
func (a *app) executor(force bool) *engine.Executor {
	return engine.NewExecutor(a.registry, a.backend, engine.ExecutorOptions{
		Force:   force,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
}

// record persists a report when a store is configured.
func (a *app) record(ctx context.Context, report *engine.Report) {
	if a.store == nil || report == nil {
		return
	}
	if err := stores.RecordReport(ctx, a.store, report); err != nil {
		a.logger.WithError(err).Warn("failed to record report")
	}
}
