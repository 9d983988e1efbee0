package main

import (
	"fmt"
	"time"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/config"
	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/observability"
	"github.com/kbukum/filevault/redis"
	"github.com/kbukum/filevault/server"
	"github.com/kbukum/filevault/storage"
)

// Share store kinds.
const (
	shareStoreMemory = "memory"
	shareStoreRedis  = "redis"
	shareStoreGorm   = "gorm"
)

// ShareConfig selects where share link state lives.
type ShareConfig struct {
	// Store is memory, redis or gorm (default: gorm).
	Store string `yaml:"store" mapstructure:"store"`

	// Retention keeps redis records this long past their expiry (e.g. "24h").
	Retention string `yaml:"retention" mapstructure:"retention"`

	// SweepInterval is how often temp copies of expired links are removed
	// (default: 10m).
	SweepInterval string `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// AppConfig is the full filevault configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Share         ShareConfig          `yaml:"share" mapstructure:"share"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Share.Store == "" {
		c.Share.Store = shareStoreGorm
	}
	if c.Share.Retention == "" {
		c.Share.Retention = "24h"
	}
	if c.Share.SweepInterval == "" {
		c.Share.SweepInterval = "10m"
	}
}

// Validate validates every section. The catalog always needs the database;
// redis is required only when it holds the share links.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if !c.Database.Enabled {
		return fmt.Errorf("database.enabled must be true: the file catalog is stored there")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	switch c.Share.Store {
	case shareStoreMemory, shareStoreGorm:
	case shareStoreRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("share.store=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("share.store must be one of [memory, redis, gorm] (got: %s)", c.Share.Store)
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if d, err := time.ParseDuration(c.Share.Retention); err != nil || d < 0 {
		return fmt.Errorf("share.retention must be a non-negative duration (got: %s)", c.Share.Retention)
	}
	if d, err := time.ParseDuration(c.Share.SweepInterval); err != nil || d <= 0 {
		return fmt.Errorf("share.sweep_interval must be a positive duration (got: %s)", c.Share.SweepInterval)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

func (c *AppConfig) retention() time.Duration {
	d, _ := time.ParseDuration(c.Share.Retention)
	return d
}

func (c *AppConfig) sweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Share.SweepInterval)
	return d
}

// stopTimeout leaves the HTTP server its full drain period plus time for the
// components behind it.
func (c *AppConfig) stopTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout)*time.Second + 5*time.Second
}
