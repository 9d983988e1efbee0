package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/storage"
	_ "github.com/kbukum/filevault/storage/local"
)

func TestComponent_Lifecycle(t *testing.T) {
	base := t.TempDir()
	cfg := storage.Config{
		Public:  storage.RootConfig{Path: filepath.Join(base, "public")},
		Private: storage.RootConfig{Path: filepath.Join(base, "private")},
		Temp:    storage.RootConfig{Path: filepath.Join(base, "temp")},
	}
	c := storage.NewComponent(cfg, logger.Nop())
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s: %s", h.Status, h.Message)
	}
	for _, class := range storage.Classes() {
		if _, err := c.Set().For(class); err != nil {
			t.Errorf("For(%s): %v", class, err)
		}
	}
	if d := c.Describe(); d.Type != "storage" {
		t.Errorf("Describe().Type = %q", d.Type)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Set() != nil {
		t.Error("Set should be nil after stop")
	}
}

func TestComponent_StartRejectsPlaceholderProvider(t *testing.T) {
	c := storage.NewComponent(storage.Config{Provider: storage.ProviderS3}, logger.Nop())
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected s3 provider to fail")
	}
}
