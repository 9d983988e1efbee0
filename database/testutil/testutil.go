// Package testutil opens throwaway SQLite databases for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/logger"
)

// NewDB opens a file-backed SQLite database inside t.TempDir(), migrates
// models and closes it when the test ends. A file database (rather than
// ":memory:") lets concurrent tests use more than one connection.
func NewDB(t testing.TB, models ...interface{}) *database.DB {
	t.Helper()

	cfg := database.Config{
		Enabled:      true,
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		BusyTimeout:  "10s",
		MaxRetries:   1,
		LogLevel:     "silent",
	}
	db, err := database.Open(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate test database: %v", err)
		}
	}
	return db
}
