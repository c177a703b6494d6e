// Package storetest opens throwaway databases for package tests.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pagecraft-dev/pagecraft/internal/config"
	"github.com/pagecraft-dev/pagecraft/internal/store"
)

// NewDB returns a migrated SQLite database living in the test's temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pagecraft-test.sqlite")
	db, err := store.Open(config.DatabaseConfig{URL: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(db)
	})
	return db
}
