package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Load when a source has never been saved.
var ErrNotFound = errors.New("state not found")

// Store keeps the last known payload of each telemetry source. It holds
// one row per source and never a history.
type Store interface {
	Save(ctx context.Context, source string, payload []byte) error
	Load(ctx context.Context, source string) ([]byte, time.Time, error)
	Close() error
}

type SQLiteStore struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteStore(log *slog.Logger, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{
		log: log,
		db:  db,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS last_state (
			source TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, source string, payload []byte) error {
	query := `
		INSERT INTO last_state (source, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		source,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save state for %s: %w", source, err)
	}

	s.log.Debug("state saved", slog.String("source", source))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, source string) ([]byte, time.Time, error) {
	var payload, updatedStr string

	err := s.db.QueryRowContext(ctx,
		"SELECT payload, updated_at FROM last_state WHERE source = ?", source,
	).Scan(&payload, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load state for %s: %w", source, err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, updatedStr)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return []byte(payload), updatedAt, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM last_state").Scan(&count)
	return count, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
