package main

import (
	"context"
	"fmt"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/bootstrap"
	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/observability"
	"github.com/kbukum/filevault/redis"
	"github.com/kbukum/filevault/server"
	"github.com/kbukum/filevault/storage"

	_ "github.com/kbukum/filevault/storage/local"
)

// serve runs the HTTP service until SIGINT/SIGTERM.
func serve(ctx context.Context, cfg *AppConfig) error {
	cfg.ApplyDefaults()
	app, err := bootstrap.NewApp(cfg, bootstrap.WithStopTimeout(cfg.stopTimeout()))
	if err != nil {
		return err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Setup(ctx, &cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	app.OnStop(func(ctx context.Context) error {
		return shutdownTelemetry(ctx)
	})

	metrics, err := observability.NewMetrics(observability.Meter("filevault"))
	if err != nil {
		return err
	}

	provider, err := auth.NewJWTProvider(cfg.Auth.JWT)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	srv := server.New(cfg.Server, cfg.Debug, log)
	srv.ApplyMiddleware()
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)

	storageComp := storage.NewComponent(cfg.Storage, log).WithMetrics(metrics)
	dbComp := database.NewComponent(cfg.Database, log)
	var redisComp *redis.Component

	if err := app.RegisterComponent(storageComp); err != nil {
		return err
	}
	if err := app.RegisterComponent(dbComp); err != nil {
		return err
	}
	if cfg.Redis.Enabled {
		redisComp = redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(redisComp); err != nil {
			return err
		}
	}
	vault := &vaultComponent{
		cfg:      cfg,
		storage:  storageComp,
		database: dbComp,
		redis:    redisComp,
		server:   srv,
		provider: provider,
		metrics:  metrics,
		log:      log,
	}
	if err := app.RegisterComponent(vault); err != nil {
		return err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	app.OnReady(func(context.Context) error {
		for _, r := range srv.Engine().Routes() {
			app.Summary.TrackRoute(r.Method, r.Path, r.Handler)
		}
		return nil
	})

	return app.Run(ctx)
}
