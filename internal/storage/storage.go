// Package storage is the persistence collaborator for the birthday store
// and the daily trigger. It deals in raw record values and a single
// last-fired marker; all domain interpretation happens above it.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/birthday-tracker/internal/config"
)

// RawRecord is the persisted shape of a birthday, matching the stored JSON
// field names. Date is the stored string form ("YYYY-MM-DD" or "MM-DD").
type RawRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	ReminderDays []int  `json:"reminder_days_before"`
	Notes        string `json:"notes"`
}

// Config selects and configures a backend.
type Config struct {
	// Driver is "file" (JSON documents) or "sqlite".
	Driver string
	Path   string
	// BusyTimeout applies to sqlite only; zero means the driver default.
	BusyTimeout time.Duration
}

// Store is the minimal persistence API used by the core.
//
// LoadRecords/SaveRecords move the full record set; the marker calls hold
// the last calendar day ("YYYY-MM-DD") for which reminders were fired.
type Store interface {
	LoadRecords(ctx context.Context) ([]RawRecord, error)
	SaveRecords(ctx context.Context, records []RawRecord) error
	LoadLastFired(ctx context.Context) (string, error)
	SaveLastFired(ctx context.Context, day string) error
	Close() error
}

// Open initializes the configured backend.
func Open(cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case config.StorageDriverFile:
		return openFile(cfg)
	case config.StorageDriverSQLite, "sqlite3":
		return openSQLite(cfg)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrStorageDriver, cfg.Driver)
	}
}
