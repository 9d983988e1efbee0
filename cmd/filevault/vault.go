package main

import (
	"context"
	"fmt"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/catalog"
	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/observability"
	"github.com/kbukum/filevault/redis"
	"github.com/kbukum/filevault/server"
	"github.com/kbukum/filevault/server/api"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/share/gormstore"
	"github.com/kbukum/filevault/share/memory"
	"github.com/kbukum/filevault/share/redisstore"
	"github.com/kbukum/filevault/storage"
)

var (
	_ component.Component   = (*vaultComponent)(nil)
	_ component.Describable = (*vaultComponent)(nil)
)

// vaultComponent assembles the catalog once the infrastructure it depends on
// has started, and mounts the HTTP API before the server starts listening.
type vaultComponent struct {
	cfg      *AppConfig
	storage  *storage.Component
	database *database.Component
	redis    *redis.Component
	server   *server.Server
	provider auth.Provider
	metrics  *observability.Metrics
	log      *logger.Logger

	files   *catalog.Service
	sweeper *catalog.Sweeper
}

func (v *vaultComponent) Name() string { return "vault" }

func (v *vaultComponent) Start(ctx context.Context) error {
	db := v.database.DB()
	if db == nil {
		return fmt.Errorf("vault start: database not started")
	}
	if err := catalog.Migrate(db); err != nil {
		return fmt.Errorf("vault start: migrate catalog: %w", err)
	}

	store, err := v.shareStore(db)
	if err != nil {
		return fmt.Errorf("vault start: %w", err)
	}
	shares := share.NewService(store,
		share.WithMetrics(v.metrics),
		share.WithLogger(v.log),
	)
	v.files = catalog.NewService(catalog.NewGormStore(db), v.storage.Set(), shares,
		catalog.WithMaxFileSize(v.cfg.Storage.MaxFileSize),
		catalog.WithContentHash(v.cfg.Storage.RecordContentHash),
		catalog.WithAllowedMimeTypes(v.cfg.Storage.AllowedMimeTypes),
		catalog.WithLogger(v.log),
	)

	v.sweeper = catalog.NewSweeper(v.files, v.cfg.sweepInterval(), v.log)
	v.sweeper.Start(ctx)

	handler := api.NewHandler(v.files,
		api.WithPublicURL(v.cfg.Server.PublicURL),
		api.WithLogger(v.log),
	)
	handler.Register(v.server.Engine(), v.provider)
	return nil
}

func (v *vaultComponent) shareStore(db *database.DB) (share.Store, error) {
	switch v.cfg.Share.Store {
	case shareStoreMemory:
		v.log.Warn("share links are kept in memory and lost on restart")
		return memory.New(), nil
	case shareStoreRedis:
		client := v.redis.Client()
		if client == nil {
			return nil, fmt.Errorf("redis not started")
		}
		return redisstore.New(client,
			redisstore.WithRetention(v.cfg.retention()),
			redisstore.WithLogger(v.log),
		), nil
	default:
		if err := gormstore.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate share links: %w", err)
		}
		return gormstore.New(db), nil
	}
}

func (v *vaultComponent) Stop(_ context.Context) error {
	if v.sweeper != nil {
		v.sweeper.Stop()
	}
	v.files = nil
	return nil
}

func (v *vaultComponent) Health(_ context.Context) component.Health {
	if v.files == nil {
		return component.Health{Name: v.Name(), Status: component.StatusUnhealthy, Message: "catalog not initialized"}
	}
	return component.Health{Name: v.Name(), Status: component.StatusHealthy}
}

func (v *vaultComponent) Describe() component.Description {
	return component.Description{
		Name:    "File catalog",
		Type:    "service",
		Details: fmt.Sprintf("shares=%s sweep=%s max_file_size=%d", v.cfg.Share.Store, v.cfg.Share.SweepInterval, v.cfg.Storage.MaxFileSize),
	}
}
