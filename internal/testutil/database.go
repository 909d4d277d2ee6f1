// Package testutil provides shared fixtures for tests: throwaway databases, seeded
// application state and an assistant wired to a scripted gateway.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/storage"
)

// TestDB is a migrated, file-backed database that lives for one test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Path    string
	t       *testing.T
}

// SetupTestDB creates a database in a temp directory, migrates it and saves initial.
// A file is used instead of :memory: so checkpoints work.
func SetupTestDB(t *testing.T, initial model.AppState) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scribe.db")
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := store.SaveState(ctx, initial); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	return &TestDB{Storage: store, Path: path, t: t}
}

// Release closes the connection so another component can open the file.
func (db *TestDB) Release() {
	db.t.Helper()
	if err := db.Storage.Close(); err != nil {
		db.t.Fatalf("failed to close test database: %v", err)
	}
}

// LoadState reads the saved state from a fresh connection.
func (db *TestDB) LoadState() model.AppState {
	db.t.Helper()

	store, err := storage.NewSQLiteStorage(db.Path)
	if err != nil {
		db.t.Fatalf("failed to reopen test database: %v", err)
	}
	defer func() { _ = store.Close() }()

	st, err := store.LoadState(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load state: %v", err)
	}
	return st
}
