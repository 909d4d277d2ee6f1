package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// stateKey is the app_state row holding the serialized application state.
const stateKey = "state"

// SQLiteStorage keeps the application state as a JSON blob in a key-value table.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// LoadState reads the persisted state. A database that was never written yields an empty state.
func (s *SQLiteStorage) LoadState(ctx context.Context) (model.AppState, error) {
	if err := validateContext(ctx); err != nil {
		return model.AppState{}, err
	}

	raw, err := s.get(ctx, stateKey)
	if errors.Is(err, common.ErrNotFound) {
		return model.AppState{}.Normalize(), nil
	}
	if err != nil {
		return model.AppState{}, err
	}

	var st model.AppState
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.AppState{}, fmt.Errorf("%w: failed to decode state: %v", common.ErrDatabaseCorrupted, err)
	}
	return st.Normalize(), nil
}

// SaveState replaces the persisted state.
func (s *SQLiteStorage) SaveState(ctx context.Context, st model.AppState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	raw, err := json.Marshal(st.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return s.put(ctx, stateKey, raw)
}

func (s *SQLiteStorage) get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key %s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteStorage) put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
