package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/config"
	"github.com/kbukum/filevault/logger"
)

type testConfig struct {
	config.ServiceConfig
}

// journal records lifecycle events in the order they happen.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeComponent struct {
	name     string
	j        *journal
	startErr error
	stopErr  error
	health   component.Health
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	f.j.add("start " + f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	f.j.add("stop " + f.name)
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) component.Health {
	if f.health.Status == "" {
		return component.Health{Name: f.name, Status: component.StatusHealthy}
	}
	return f.health
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	app, err := NewApp(&testConfig{}, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return app
}

func register(t *testing.T, app *App[*testConfig], comps ...component.Component) {
	t.Helper()
	for _, c := range comps {
		if err := app.RegisterComponent(c); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "filevault" {
		t.Errorf("Name = %q, want the default service name", app.Name)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("Environment = %q, defaults not applied", app.Cfg.Environment)
	}
	if app.stopTimeout != DefaultStopTimeout {
		t.Errorf("stopTimeout = %v", app.stopTimeout)
	}
	if app.Components == nil || app.Summary == nil || app.Logger == nil {
		t.Error("registry, summary and logger must be set")
	}

	app = newTestApp(t, WithStopTimeout(3*time.Second), WithStopTimeout(0))
	if app.stopTimeout != 3*time.Second {
		t.Errorf("stopTimeout = %v, a zero option must be ignored", app.stopTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ServiceConfig
	}{
		{"unknown environment", config.ServiceConfig{Environment: "bogus"}},
		{"unknown log level", config.ServiceConfig{Logging: logger.Config{Level: "loud"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewApp(&testConfig{ServiceConfig: tt.cfg}, WithLogger(logger.Nop())); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	register(t, app, &fakeComponent{name: "storage", j: j})
	if err := app.RegisterComponent(&fakeComponent{name: "storage", j: j}); err == nil {
		t.Error("expected an error for a duplicate component name")
	}
}

func TestStartStopOrder(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	register(t, app,
		&fakeComponent{name: "storage", j: j},
		&fakeComponent{name: "database", j: j},
		&fakeComponent{name: "server", j: j},
	)
	app.OnReady(func(context.Context) error { j.add("ready"); return nil })
	app.OnStop(func(context.Context) error { j.add("telemetry"); return nil })

	if err := app.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := app.Stop(); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"start storage", "start database", "start server", "ready",
		"telemetry", "stop server", "stop database", "stop storage",
	}
	if got := j.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v\nwant     %v", got, want)
	}
}

func TestStartFailureStopsStarted(t *testing.T) {
	tests := []struct {
		name    string
		failing *fakeComponent
		readyOK bool
		want    []string
	}{
		{
			name:    "component start fails",
			failing: &fakeComponent{name: "database", startErr: errors.New("locked")},
			readyOK: true,
			want:    []string{"start storage", "start database", "stop storage", "telemetry"},
		},
		{
			name:    "ready hook fails",
			failing: &fakeComponent{name: "database"},
			want:    []string{"start storage", "start database", "telemetry", "stop database", "stop storage"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			j := &journal{}
			tt.failing.j = j
			register(t, app, &fakeComponent{name: "storage", j: j}, tt.failing)
			app.OnReady(func(context.Context) error {
				if tt.readyOK {
					return nil
				}
				return errors.New("routes")
			})
			app.OnStop(func(context.Context) error { j.add("telemetry"); return nil })

			if err := app.Start(context.Background()); err == nil {
				t.Fatal("expected Start to fail")
			}
			if got := j.list(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("events = %v\nwant     %v", got, tt.want)
			}
		})
	}
}

func TestStopJoinsErrors(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	register(t, app, &fakeComponent{name: "redis", j: j, stopErr: errors.New("conn reset")})
	hookErr := errors.New("flush failed")
	app.OnStop(
		func(context.Context) error { return hookErr },
		func(context.Context) error { j.add("second hook"); return nil },
	)
	if err := app.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := app.Stop()
	if !errors.Is(err, hookErr) {
		t.Errorf("err = %v, want the hook error", err)
	}
	if err == nil || !strings.Contains(err.Error(), "conn reset") {
		t.Errorf("err = %v, want the component stop error too", err)
	}
	if got := j.list(); !reflect.DeepEqual(got, []string{"start redis", "second hook", "stop redis"}) {
		t.Errorf("events = %v", got)
	}
}

func TestStopHookGetsDeadline(t *testing.T) {
	app := newTestApp(t, WithStopTimeout(2*time.Second))
	var remaining time.Duration
	app.OnStop(func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Error("stop context has no deadline")
		}
		remaining = time.Until(deadline)
		return nil
	})
	if err := app.Stop(); err != nil {
		t.Fatal(err)
	}
	if remaining <= 0 || remaining > 2*time.Second {
		t.Errorf("remaining = %v, want within the stop timeout", remaining)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	register(t, app, &fakeComponent{name: "server", j: j})

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error { cancel(); return nil })

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if got := j.list(); !reflect.DeepEqual(got, []string{"start server", "stop server"}) {
		t.Errorf("events = %v", got)
	}
}

func TestStartLogsUnhealthyComponents(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json", Output: "stdout"}, "filevault")
	app := newTestApp(t, WithLogger(log))
	j := &journal{}
	register(t, app, &fakeComponent{
		name:   "redis",
		j:      j,
		health: component.Health{Name: "redis", Status: component.StatusUnhealthy, Message: "ping timeout"},
	})
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("an unhealthy component must not fail Start: %v", err)
	}
	defer app.Stop()
	if !strings.Contains(buf.String(), "redis=unhealthy (ping timeout)") {
		t.Errorf("missing unhealthy warning:\n%s", buf.String())
	}
}

func TestNewSummary(t *testing.T) {
	s := NewSummary("my-service", "2.0.0")
	if s.serviceName != "my-service" {
		t.Errorf("expected 'my-service', got %q", s.serviceName)
	}
	if s.version != "2.0.0" {
		t.Errorf("expected '2.0.0', got %q", s.version)
	}
}

func TestSummaryRoutesSorted(t *testing.T) {
	s := NewSummary("svc", "1.0")
	s.TrackRoute("POST", "/api/v1/files", "upload")
	s.TrackRoute("GET", "/alive", "liveness")
	s.TrackRoute("GET", "/api/v1/files", "list")

	got := s.Routes()
	want := []RouteInfo{
		{Method: "GET", Path: "/alive", Handler: "liveness"},
		{Method: "GET", Path: "/api/v1/files", Handler: "list"},
		{Method: "POST", Path: "/api/v1/files", Handler: "upload"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d routes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("routes[%d] = %+v, expected %+v", i, got[i], want[i])
		}
	}
	if s.routes[0].Path != "/api/v1/files" || s.routes[0].Method != "POST" {
		t.Error("Routes must not reorder the tracked slice")
	}
}

func TestSummarySetStartupDuration(t *testing.T) {
	s := NewSummary("svc", "1.0")
	s.SetStartupDuration(500 * time.Millisecond)

	if s.startupDuration != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", s.startupDuration)
	}
}

// describedComponent implements Component + Describable.
type describedComponent struct {
	fakeComponent
	desc component.Description
}

func (d *describedComponent) Describe() component.Description { return d.desc }

func TestSummaryDisplay(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json", Output: "stdout"}, "test-svc")

	registry := component.NewRegistry(log)
	registry.Register(&describedComponent{
		fakeComponent: fakeComponent{
			name:   "http-server",
			health: component.Health{Name: "http-server", Status: component.StatusHealthy},
		},
		desc: component.Description{Type: "server", Details: "localhost:8080"},
	})
	registry.Register(&fakeComponent{
		name:   "db",
		health: component.Health{Name: "db", Status: component.StatusUnhealthy, Message: "connection refused"},
	})

	s := NewSummary("test-svc", "1.0.0")
	s.SetStartupDuration(100 * time.Millisecond)
	s.TrackRoute("GET", "/health", "health")
	s.Display(context.Background(), registry, log)

	out := buf.String()
	for _, want := range []string{"Service ready", "localhost:8080", "connection refused", "/health"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryDisplayNilRegistry(t *testing.T) {
	s := NewSummary("test-svc", "1.0.0")
	s.Display(context.Background(), nil, logger.Nop())
}
