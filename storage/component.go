package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/observability"
)

const healthProbePath = ".health/probe"

// Component builds the backend Set and implements component.Component for
// lifecycle management.
type Component struct {
	set     *Set
	cfg     Config
	metrics *observability.Metrics
	log     *logger.Logger
}

// ensure Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("storage"),
	}
}

// WithMetrics instruments every backend with the given metrics.
func (c *Component) WithMetrics(m *observability.Metrics) *Component {
	c.metrics = m
	return c
}

// Set returns the backends, or nil if not started.
func (c *Component) Set() *Set {
	return c.set
}

// Config returns the effective configuration.
func (c *Component) Config() Config {
	return c.cfg
}

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start opens the three storage roots.
func (c *Component) Start(_ context.Context) error {
	set, err := Open(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.set = set.Map(func(class Class, b Backend) Backend {
		return Instrument(b, class, c.metrics)
	})
	return nil
}

// Stop releases the backends. Roots stay on disk.
func (c *Component) Stop(_ context.Context) error {
	c.set = nil
	return nil
}

// Health reports unhealthy unless every root accepts a write.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.set == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "storage not initialized",
		}
	}

	var failed []string
	for _, class := range Classes() {
		b, err := c.set.For(class)
		if err == nil {
			_, err = b.Save(ctx, healthProbePath, bytes.NewReader(nil))
		}
		if err == nil {
			err = b.Delete(ctx, healthProbePath)
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", class, err))
		}
	}
	if len(failed) > 0 {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: strings.Join(failed, "; "),
		}
	}

	return component.Health{
		Name:   c.Name(),
		Status: component.StatusHealthy,
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name: "Storage",
		Type: "storage",
		Details: fmt.Sprintf("provider=%s public=%s private=%s temp=%s hash=%s",
			c.cfg.Provider, c.cfg.Public.Path, c.cfg.Private.Path, c.cfg.Temp.Path, c.cfg.HashAlgorithm),
	}
}
