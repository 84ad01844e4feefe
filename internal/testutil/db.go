// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/config"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

// NewDB opens a private in-memory sqlite database with all migrations applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:felicity_test_%d?mode=memory&cache=shared", dbCounter.Add(1))

	database, err := db.Open(config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    name,
		Environment:    "test",
	})
	if err != nil {
		t.Fatalf("NewDB() open failed: %v", err)
	}

	if err := db.MigrateDatabase(database); err != nil {
		t.Fatalf("NewDB() migrate failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close(database)
	})

	return database
}
