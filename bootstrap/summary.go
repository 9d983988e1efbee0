package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/logger"
)

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary collects what was started so it can be logged once the
// application is ready.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	routes          []RouteInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Routes returns the tracked routes sorted by path, then method.
func (s *Summary) Routes() []RouteInfo {
	out := append([]RouteInfo(nil), s.routes...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Display logs the summary: infrastructure from the registry, component
// health and the tracked routes.
func (s *Summary) Display(ctx context.Context, reg *component.Registry, log *logger.Logger) {
	log.Info("Service ready", logger.Fields(
		"service", s.serviceName,
		"version", s.version,
		"startup_ms", s.startupDuration.Milliseconds(),
	))
	if reg == nil {
		return
	}

	for _, d := range reg.Descriptions() {
		log.Info("Infrastructure", logger.Fields("name", d.Name, "type", d.Type, "details", d.Details))
	}
	for _, h := range reg.HealthAll(ctx) {
		fields := logger.Fields("name", h.Name, "status", string(h.Status))
		if h.Message != "" {
			fields["message"] = h.Message
		}
		if h.Status == component.StatusHealthy {
			log.Debug("Component health", fields)
		} else {
			log.Warn("Component health", fields)
		}
	}
	for _, r := range s.Routes() {
		log.Debug("Route", logger.Fields("route", fmt.Sprintf("%-6s %s", r.Method, r.Path), "handler", r.Handler))
	}
}
