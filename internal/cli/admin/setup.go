// Package admin holds the sopbotd commands that run the pipeline in-process.
package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/sopbot/internal/app"
	"github.com/cloo-solutions/sopbot/internal/config"
	"github.com/cloo-solutions/sopbot/internal/database"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
)

// runtime is what every in-process command needs: config, tuning and the
// wired pipeline.
type runtime struct {
	cfg      *config.Config
	app      *app.App
	shutdown func()
}

func (r *runtime) Close() {
	if r.app != nil {
		r.app.Close()
	}
	if r.shutdown != nil {
		r.shutdown()
	}
}

// setup loads the configuration, starts telemetry and assembles the app.
// A non-empty folder replaces SOPBOT_DATA_PATH as the default SOP folder.
// Postgres migrations run first unless migrate is false.
func setup(ctx context.Context, folder string, migrate bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if folder != "" {
		cfg.DataPath = folder
	}

	rt := &runtime{cfg: cfg, shutdown: initTelemetry(cfg)}

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to load tuning: %w", err)
	}

	if migrate && cfg.IndexBackend == config.IndexBackendPostgres {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := app.New(ctx, cfg, tuning)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.app = a
	return rt, nil
}

func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}
