package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/logger"
)

// DefaultStopTimeout bounds Stop when no WithStopTimeout option is given.
const DefaultStopTimeout = 15 * time.Second

// Hook runs once the app is ready or while it stops.
type Hook func(ctx context.Context) error

// Option configures an App.
type Option func(*settings)

type settings struct {
	log         *logger.Logger
	stopTimeout time.Duration
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithStopTimeout bounds the whole of Stop: OnStop hooks plus component
// shutdown.
func WithStopTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// App owns the component registry of one process. Components start in
// registration order and stop in reverse.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.RegisterComponent(storageComp)
//	app.OnStop(shutdownTelemetry)
//	return app.Run(ctx)
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	stopTimeout time.Duration
	onReady     []Hook
	onStop      []Hook
}

// NewApp applies defaults to cfg, validates it and builds the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	s := settings{stopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	base := cfg.GetServiceConfig()
	if s.log == nil {
		s.log = logger.Init(&base.Logging, base.Name)
	}
	return &App[C]{
		Name:        base.Name,
		Version:     base.Version,
		Cfg:         cfg,
		Components:  component.NewRegistry(s.log),
		Logger:      s.log,
		Summary:     NewSummary(base.Name, base.Version),
		stopTimeout: s.stopTimeout,
	}, nil
}

// RegisterComponent adds c after the components already registered.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnReady registers hooks run after every component has started.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers hooks run before components are stopped. All of them
// run even when one fails.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// Run starts the app, waits for SIGINT/SIGTERM or ctx cancellation and
// stops it.
func (a *App[C]) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Logger.Info("Shutdown requested", logger.Fields("cause", context.Cause(ctx).Error()))
	return a.Stop()
}

// Start starts every component, runs the OnReady hooks and logs the
// summary. When a step fails, whatever was started is stopped again.
func (a *App[C]) Start(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return a.abort(fmt.Errorf("start components: %w", err))
	}
	if bad := a.unhealthy(ctx); len(bad) > 0 {
		a.Logger.Warn("Components not healthy after start", logger.Fields("components", bad))
	}
	for i, h := range a.onReady {
		if err := h(ctx); err != nil {
			return a.abort(fmt.Errorf("ready hook %d: %w", i, err))
		}
	}

	a.Summary.SetStartupDuration(time.Since(began))
	a.Summary.Display(ctx, a.Components, a.Logger)
	return nil
}

func (a *App[C]) abort(err error) error {
	if stopErr := a.Stop(); stopErr != nil {
		a.Logger.Error("Cleanup after failed start", logger.ErrorFields("stop", stopErr))
	}
	return err
}

// Stop runs the OnStop hooks, then stops the components, all within the
// stop timeout. Errors from every step are joined.
func (a *App[C]) Stop() error {
	a.Logger.Info("Stopping application", logger.Fields("timeout", a.stopTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel()

	var errs []error
	for i, h := range a.onStop {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop hook %d: %w", i, err))
		}
	}
	if err := a.Components.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		a.Logger.Error("Application stopped with errors", logger.ErrorFields("stop", err))
		return err
	}
	a.Logger.Info("Application stopped")
	return nil
}

func (a *App[C]) unhealthy(ctx context.Context) []string {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += " (" + h.Message + ")"
		}
		bad = append(bad, detail)
	}
	return bad
}
