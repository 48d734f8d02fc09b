// Package testutil opens throwaway stores for package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"edge-tradesim/internal/clock"
	"edge-tradesim/internal/db"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// Epoch is the fixed start time handed to manual clocks in tests.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// OpenDB returns a migrated SQLite store living in t.TempDir.
func OpenDB(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "edge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func Clock() *clock.Manual {
	return clock.NewManual(Epoch)
}

// OpenPostgres returns a migrated Postgres store from TEST_DATABASE_URL and
// skips the test when it is unset. Tables are shared between runs, so
// callers use fresh account ids.
func OpenPostgres(t *testing.T) *db.DB {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := db.Open(context.Background(), "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}
