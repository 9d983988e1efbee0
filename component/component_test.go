package component

import (
	"context"
	"fmt"
	"testing"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Type: "storage", Details: "public=/tmp/x"}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&mockComponent{name: "database"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "database"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "storage"})

	got := r.Get("storage")
	if got == nil || got.Name() != "storage" {
		t.Fatalf("expected to get registered component, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAllOrder(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}

	r.Register(&mockComponent{name: "storage", startOrder: &order})
	r.Register(&describedComponent{mockComponent{name: "database", startOrder: &order}})
	r.Register(&mockComponent{name: "http-server", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	want := []string{"storage", "database", "http-server"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected start order %v, got %v", want, order)
	}
}

func TestStartAllErrorStopsStarted(t *testing.T) {
	r := NewRegistry(nil)
	starts, stops := []string{}, []string{}

	r.Register(&mockComponent{name: "storage", startOrder: &starts, stopOrder: &stops})
	r.Register(&mockComponent{name: "redis", startOrder: &starts, stopOrder: &stops, startErr: fmt.Errorf("connection refused")})
	r.Register(&mockComponent{name: "http-server", startOrder: &starts, stopOrder: &stops})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected error from StartAll")
	}
	if len(starts) != 2 {
		t.Errorf("expected start to halt at failing component, got %v", starts)
	}
	if len(stops) != 1 || stops[0] != "storage" {
		t.Errorf("expected already-started components to be stopped, got %v", stops)
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}

	r.Register(&mockComponent{name: "storage", stopOrder: &order})
	r.Register(&mockComponent{name: "database", stopOrder: &order})
	r.Register(&mockComponent{name: "http-server", stopOrder: &order})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	want := []string{"http-server", "database", "storage"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected reverse stop order %v, got %v", want, order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}
	r.Register(&mockComponent{name: "database", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "database", stopErr: fmt.Errorf("stop failed")})
	r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{
		name:   "database",
		health: Health{Name: "database", Status: StatusHealthy, Message: "connected"},
	})
	r.Register(&mockComponent{
		name:   "redis",
		health: Health{Name: "redis", Status: StatusUnhealthy, Message: "timeout"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected database healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy {
		t.Errorf("expected redis unhealthy, got %s", results[1].Status)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results []Health
		want    HealthStatus
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Health{{Status: StatusHealthy}, {Status: StatusHealthy}}, StatusHealthy},
		{"one degraded", []Health{{Status: StatusHealthy}, {Status: StatusDegraded}}, StatusDegraded},
		{"unhealthy wins", []Health{{Status: StatusDegraded}, {Status: StatusUnhealthy}}, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overall(tc.results); got != tc.want {
				t.Errorf("Overall() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDescriptions(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "plain"})
	r.Register(&describedComponent{mockComponent{name: "storage"}})

	got := r.Descriptions()
	if len(got) != 1 {
		t.Fatalf("expected 1 description, got %d", len(got))
	}
	if got[0].Name != "storage" || got[0].Type != "storage" {
		t.Errorf("unexpected description: %+v", got[0])
	}
}
