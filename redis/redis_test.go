package redis

import (
	"context"
	"crypto/tls"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/filevault/component"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/security"
	"github.com/kbukum/filevault/security/tlstest"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Addr != "localhost:6379" || cfg.KeyPrefix != "filevault:" || cfg.PoolSize != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.ReadTimeout = "fast"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "read_timeout") {
		t.Errorf("expected read_timeout error, got %v", err)
	}
	if err := (&Config{Enabled: false, ReadTimeout: "fast"}).Validate(); err != nil {
		t.Errorf("disabled config should not be validated, got %v", err)
	}
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(Config{}, logger.Nop()); err == nil {
		t.Fatal("expected error for disabled client")
	}
}

func TestClient_PingAndKey(t *testing.T) {
	mini := miniredis.RunT(t)
	client, err := New(Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "fv:"}, logger.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if got := client.Key("share", "abc"); got != "fv:share:abc" {
		t.Errorf("Key = %q", got)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestClient_TLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	mini, err := miniredis.RunTLS(&tls.Config{Certificates: []tls.Certificate{certs.ServerTLS}})
	if err != nil {
		t.Fatalf("failed to start TLS miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	cfg := Config{Enabled: true, Addr: mini.Addr(), TLS: security.TLSConfig{CAFile: certs.CAFile}}
	client, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer client.Close()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping over TLS failed: %v", err)
	}

	cfg.TLS = security.TLSConfig{}
	plain, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer plain.Close()
	if err := plain.Ping(context.Background()); err == nil {
		t.Error("expected plaintext ping against a TLS server to fail")
	}
}

func TestConfig_ValidateTLS(t *testing.T) {
	cfg := Config{Enabled: true, TLS: security.TLSConfig{CertFile: "client.pem"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "redis.tls") {
		t.Errorf("expected redis.tls error, got %v", err)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	comp := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if comp.Client() == nil {
		t.Fatal("expected client after start")
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}

	mini.Close()
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after server shutdown, got %s", h.Status)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestComponent_StartFailsWithoutServer(t *testing.T) {
	comp := NewComponent(Config{Enabled: true, Addr: "127.0.0.1:1", DialTimeout: "100ms", MaxRetries: 1}, logger.Nop())
	if err := comp.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail without a server")
	}
}
