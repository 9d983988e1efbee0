// Package testutil starts miniredis-backed clients for package tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/redis"
)

// NewClient starts a miniredis server and returns a connected client. Both
// are closed when the test ends.
func NewClient(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	cfg := redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "fvtest:"}
	client, err := redis.New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}
