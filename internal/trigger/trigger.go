// Package trigger runs the daily reminder check. It is driven by a
// once-a-minute tick and decides, from a persisted last-fired marker,
// whether the notification time for a given day has already been handled.
// The marker survives restarts so a day is never announced twice, and up
// to a bounded number of missed days are replayed after downtime.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/metrics"
	"github.com/tartampluch/birthday-tracker/internal/storage"
)

// ReminderEvent is the payload published for a single due birthday.
type ReminderEvent struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Date              string `json:"date"`
	DaysUntil         int    `json:"days_until"`
	AgeTurning        *int   `json:"age_turning,omitempty"`
	AgeTurningOrdinal string `json:"age_turning_ordinal,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// Options supplies the schedule parameters for a check. Kept as a
// callback so configuration reloads take effect without restarting.
type Options struct {
	Hour     int
	Minute   int
	Defaults []int
}

// Trigger owns the fired-day marker and evaluates the reminder schedule.
type Trigger struct {
	mu      sync.Mutex
	log     *slog.Logger
	records func() []engine.Record
	options func() Options
	bus     eventbus.Bus
	backend storage.Store
	clock   engine.Clock
	metrics *metrics.Collector

	lastFired time.Time // midnight of the last handled day, zero = never
}

// New creates a trigger. Call Restore before the first Check.
func New(records func() []engine.Record, options func() Options, bus eventbus.Bus, backend storage.Store, clock engine.Clock, mc *metrics.Collector, log *slog.Logger) *Trigger {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = engine.RealClock{}
	}
	return &Trigger{
		log:     log.With(config.LogKeyComponent, config.CompTrigger),
		records: records,
		options: options,
		bus:     bus,
		backend: backend,
		clock:   clock,
		metrics: mc,
	}
}

// Restore loads the persisted last-fired marker. A missing or malformed
// marker is treated as never fired.
func (t *Trigger) Restore(ctx context.Context) error {
	day, err := t.backend.LoadLastFired(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrMarkerLoad, err)
	}
	if day == "" {
		return nil
	}
	parsed, err := time.ParseInLocation(config.DateFormatFull, day, t.clock.Now().Location())
	if err != nil {
		t.log.Warn(config.ErrMarkerLoad, config.LogKeyValue, day, config.LogKeyError, err)
		return nil
	}
	t.mu.Lock()
	t.lastFired = parsed
	t.mu.Unlock()
	return nil
}

// Check evaluates the schedule for the current tick and returns how many
// reminders fired. It is safe to call at any frequency: a day fires at
// most once, on the first call at or after the notification time.
//
// After downtime, days strictly between the marker and today are replayed
// oldest first, bounded by the catch-up window. A fresh install with no
// marker never replays the past.
func (t *Trigger) Check(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.RecordCheck()

	now := t.clock.Now()
	today := midnight(now)
	opts := t.options()

	fired := 0

	// Replay missed days. Only meaningful when a marker exists.
	if !t.lastFired.IsZero() {
		start := t.lastFired.AddDate(0, 0, 1)
		if floor := today.AddDate(0, 0, -config.MaxCatchUpDays); start.Before(floor) {
			start = floor
		}
		for day := start; day.Before(today); day = day.AddDate(0, 0, 1) {
			t.log.Info(config.MsgCheckCatchUp, config.LogKeyDay, day.Format(config.DateFormatFull))
			fired += t.fireLocked(ctx, day, opts)
		}
	}

	// Today fires once the notification time has passed.
	if !today.After(t.lastFired) {
		return fired, nil
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), opts.Hour, opts.Minute, 0, 0, now.Location())
	if now.Before(due) {
		t.log.Debug(config.MsgCheckIdle)
		return fired, nil
	}
	fired += t.fireLocked(ctx, today, opts)
	return fired, nil
}

// fireLocked publishes every reminder due on the given day and advances
// the marker. The marker is written even when nothing is due so an empty
// day is not re-evaluated.
func (t *Trigger) fireLocked(ctx context.Context, day time.Time, opts Options) int {
	due := engine.DueToday(t.records(), opts.Defaults, day)

	t.log.Info(config.MsgCheckStarted,
		config.LogKeyDay, day.Format(config.DateFormatFull),
		config.LogKeyCount, len(due),
	)

	for _, d := range due {
		evt := buildEvent(d, day)
		t.bus.Publish(eventbus.Event{Type: config.EventReminder, Data: evt})
		t.log.Info(config.MsgReminderFired,
			config.LogKeyID, d.Record.ID,
			config.LogKeyName, d.Record.Name,
			config.LogKeyDays, d.DaysUntil,
		)
	}
	t.metrics.RecordFired(len(due))

	t.saveMarkerLocked(ctx, day)
	return len(due)
}

// saveMarkerLocked advances the in-memory marker and persists it best
// effort. The marker advances even when the write fails so a broken
// backend cannot make the same day fire twice; the failure is logged
// and counted, and the write is retried on the next day's save.
func (t *Trigger) saveMarkerLocked(ctx context.Context, day time.Time) {
	t.lastFired = day
	marker := day.Format(config.DateFormatFull)
	if err := t.backend.SaveLastFired(ctx, marker); err != nil {
		t.metrics.RecordPersistFailure()
		t.log.Error(config.ErrMarkerSave, config.LogKeyError, err)
		return
	}
	t.log.Debug(config.MsgMarkerStored, config.LogKeyValue, marker)
}

// RunOnce evaluates the schedule outside of the tick, for the manual
// check endpoint. Semantics are identical to Check: already handled days
// do not fire again.
func (t *Trigger) RunOnce(ctx context.Context) (int, error) {
	return t.Check(ctx)
}

func buildEvent(d engine.Due, day time.Time) ReminderEvent {
	evt := ReminderEvent{
		ID:        d.Record.ID,
		Name:      d.Record.Name,
		Date:      d.Record.DateString(),
		DaysUntil: d.DaysUntil,
		Notes:     d.Record.Notes,
	}
	if age, ok := engine.AgeTurning(d.Record.Year, d.Record.Month, d.Record.Day, day); ok {
		evt.AgeTurning = &age
		evt.AgeTurningOrdinal = engine.Ordinal(age)
	}
	return evt
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
