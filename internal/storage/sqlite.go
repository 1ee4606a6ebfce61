package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tartampluch/birthday-tracker/internal/config"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS birthdays (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	date          TEXT NOT NULL,
	reminder_days TEXT NOT NULL DEFAULT '[]',
	notes         TEXT NOT NULL DEFAULT '',
	position      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New(config.ErrStoragePath)
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageOpen, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageOpen, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStorageOpen, err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) LoadRecords(ctx context.Context) ([]RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, date, reminder_days, notes FROM birthdays ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageLoad, err)
	}
	defer func() { _ = rows.Close() }()

	var records []RawRecord
	for rows.Next() {
		var r RawRecord
		var days string
		if err := rows.Scan(&r.ID, &r.Name, &r.Date, &days, &r.Notes); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrStorageLoad, err)
		}
		if err := json.Unmarshal([]byte(days), &r.ReminderDays); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrStorageLoad, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageLoad, err)
	}
	return records, nil
}

// SaveRecords replaces the whole set. The store above persists the full
// list after every mutation, so a transactional swap is the simplest
// consistent representation.
func (s *sqliteStore) SaveRecords(ctx context.Context, records []RawRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM birthdays`); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
	}
	for i, r := range records {
		days, err := json.Marshal(r.ReminderDays)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO birthdays(id, name, date, reminder_days, notes, position) VALUES(?,?,?,?,?,?)`,
			r.ID, r.Name, r.Date, string(days), r.Notes, i,
		); err != nil {
			return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
	}
	return nil
}

func (s *sqliteStore) LoadLastFired(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, config.StateKeyFired).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrMarkerLoad, err)
	}
	return value, nil
}

func (s *sqliteStore) SaveLastFired(ctx context.Context, day string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state(key, value) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		config.StateKeyFired, day,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrMarkerSave, err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
