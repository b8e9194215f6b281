// Package dbtest opens throwaway migrated databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/templui/habitflywheel/internal/db"
)

// New returns a sqlite database in t.TempDir() with all migrations applied.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Init("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.RunMigrations(database.DB, "sqlite"); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return database
}
