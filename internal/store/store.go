// Package store holds the in-memory birthday collection and drives its
// persistence. It is the only writer of the record set; reads hand out
// snapshots so callers never observe a half-applied mutation.
package store

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/metrics"
	"github.com/tartampluch/birthday-tracker/internal/storage"
)

// AddFields carries the input of an add operation.
type AddFields struct {
	Name         string
	Date         string
	Notes        string
	ReminderDays []int // nil/empty = use global default at scheduling time
}

// EditFields carries a partial update; nil fields are left untouched.
type EditFields struct {
	Name         *string
	Date         *string
	Notes        *string
	ReminderDays *[]int
}

// Upcoming is a record enriched with the computed occurrence data used by
// listings, the calendar feed and the API.
type Upcoming struct {
	Record     engine.Record
	DaysUntil  int
	AgeTurning int
	AgeKnown   bool
	AgeOrdinal string
}

// Store is the record collection. Every mutating call persists the full set
// through the storage backend; persistence failures are logged and the
// in-memory state is kept (best-effort durability).
type Store struct {
	mu      sync.Mutex
	log     *slog.Logger
	backend storage.Store
	bus     eventbus.Bus
	metrics *metrics.Collector

	records []engine.Record
}

// New creates an empty store. Call Load to read persisted records.
func New(backend storage.Store, bus eventbus.Bus, mc *metrics.Collector, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		log:     log.With(config.LogKeyComponent, config.CompStore),
		backend: backend,
		bus:     bus,
		metrics: mc,
	}
}

// Load reads the persisted record set. Individual malformed records are
// skipped with a warning rather than failing the whole load.
func (s *Store) Load(ctx context.Context) error {
	raws, err := s.backend.LoadRecords(ctx)
	if err != nil {
		return &PersistenceError{Err: err}
	}

	records := make([]engine.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := fromRaw(raw)
		if err != nil {
			s.log.Warn(config.MsgStoreSkipped,
				config.LogKeyID, raw.ID,
				config.LogKeyError, err,
			)
			continue
		}
		records = append(records, rec)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	s.metrics.SetRecordCount(len(records))

	s.log.Info(config.MsgStoreLoaded, config.LogKeyCount, len(records))
	return nil
}

// Add validates the fields, assigns a fresh id and persists.
func (s *Store) Add(ctx context.Context, fields AddFields) (engine.Record, error) {
	name := strings.TrimSpace(fields.Name)
	if err := validateName(name); err != nil {
		return engine.Record{}, err
	}
	year, month, day, err := engine.ParseDate(fields.Date)
	if err != nil {
		return engine.Record{}, &ValidationError{Reason: err.Error()}
	}
	if err := validateNotes(fields.Notes); err != nil {
		return engine.Record{}, err
	}
	days, err := engine.NormalizeReminderDays(fields.ReminderDays)
	if err != nil {
		return engine.Record{}, &ValidationError{Reason: err.Error()}
	}

	s.mu.Lock()
	rec := engine.Record{
		ID:           s.newIDLocked(),
		Name:         name,
		Month:        month,
		Day:          day,
		Year:         year,
		Notes:        fields.Notes,
		ReminderDays: days,
	}
	s.records = append(s.records, rec)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Info(config.MsgRecordAdded,
		config.LogKeyID, rec.ID,
		config.LogKeyName, rec.Name,
		config.LogKeyDate, rec.DateString(),
	)
	s.publishUpdated()
	return rec, nil
}

// Edit merges the supplied fields into the record, re-validates and
// persists. Absent fields keep their previous values.
func (s *Store) Edit(ctx context.Context, id string, fields EditFields) (engine.Record, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return engine.Record{}, &NotFoundError{ID: id}
	}

	next := s.records[idx]
	if fields.Name != nil {
		next.Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Date != nil {
		year, month, day, err := engine.ParseDate(*fields.Date)
		if err != nil {
			s.mu.Unlock()
			return engine.Record{}, &ValidationError{Reason: err.Error()}
		}
		next.Year, next.Month, next.Day = year, month, day
	}
	if fields.Notes != nil {
		next.Notes = *fields.Notes
	}
	if fields.ReminderDays != nil {
		days, err := engine.NormalizeReminderDays(*fields.ReminderDays)
		if err != nil {
			s.mu.Unlock()
			return engine.Record{}, &ValidationError{Reason: err.Error()}
		}
		next.ReminderDays = days
	}

	if err := validateName(next.Name); err != nil {
		s.mu.Unlock()
		return engine.Record{}, err
	}
	if err := validateNotes(next.Notes); err != nil {
		s.mu.Unlock()
		return engine.Record{}, err
	}

	s.records[idx] = next
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Info(config.MsgRecordEdited, config.LogKeyID, id)
	s.publishUpdated()
	return next, nil
}

// Remove deletes the record and persists the remaining set.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Info(config.MsgRecordRemoved, config.LogKeyID, id)
	s.publishUpdated()
	return nil
}

// Get returns a record by id.
func (s *Store) Get(id string) (engine.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return engine.Record{}, false
	}
	return s.records[idx], true
}

// Records returns a snapshot copy of the record set.
func (s *Store) Records() []engine.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]engine.Record(nil), s.records...)
}

// HasSame reports whether a record with identical name and date already
// exists. Used by the vCard importer to keep re-imports idempotent.
func (s *Store) HasSame(name string, year, month, day int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Name == name && r.Year == year && r.Month == month && r.Day == day {
			return true
		}
	}
	return false
}

// List returns every record with its computed occurrence data, sorted by
// days-until ascending with ties broken by name ascending. The sort is
// stable so automation consumers see a deterministic order.
func (s *Store) List(today time.Time, defaults []int) []Upcoming {
	records := s.Records()

	out := make([]Upcoming, 0, len(records))
	for _, r := range records {
		u := Upcoming{
			Record:    r,
			DaysUntil: engine.DaysUntil(r.Month, r.Day, today),
		}
		if age, ok := engine.AgeTurning(r.Year, r.Month, r.Day, today); ok {
			u.AgeTurning = age
			u.AgeKnown = true
			u.AgeOrdinal = engine.Ordinal(age)
		}
		out = append(out, u)
	}

	slices.SortStableFunc(out, func(a, b Upcoming) int {
		if a.DaysUntil != b.DaysUntil {
			return a.DaysUntil - b.DaysUntil
		}
		return strings.Compare(a.Record.Name, b.Record.Name)
	})
	return out
}

// persistLocked writes the full set through the backend. Failures are
// logged and counted but do not undo the in-memory mutation.
func (s *Store) persistLocked(ctx context.Context) {
	raws := make([]storage.RawRecord, 0, len(s.records))
	for _, r := range s.records {
		raws = append(raws, toRaw(r))
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.PersistTimeout)
	defer cancel()
	if err := s.backend.SaveRecords(pctx, raws); err != nil {
		s.metrics.RecordPersistFailure()
		s.log.Error(config.ErrStorageSave, config.LogKeyError, err)
	}
	s.metrics.SetRecordCount(len(s.records))
}

func (s *Store) publishUpdated() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: config.EventUpdated})
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// newIDLocked generates a short opaque id, unique within the store.
func (s *Store) newIDLocked() string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:config.RecordIDLength]
		if s.indexLocked(id) < 0 {
			return id
		}
	}
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Reason: config.ErrNameRequired}
	}
	if len(name) > config.MaxNameLength {
		return &ValidationError{Reason: config.ErrNameTooLong}
	}
	return nil
}

func validateNotes(notes string) error {
	if len(notes) > config.MaxNotesLength {
		return &ValidationError{Reason: config.ErrNotesTooLong}
	}
	return nil
}

func toRaw(r engine.Record) storage.RawRecord {
	days := r.ReminderDays
	if days == nil {
		days = []int{}
	}
	return storage.RawRecord{
		ID:           r.ID,
		Name:         r.Name,
		Date:         r.DateString(),
		ReminderDays: days,
		Notes:        r.Notes,
	}
}

func fromRaw(raw storage.RawRecord) (engine.Record, error) {
	year, month, day, err := engine.ParseDate(raw.Date)
	if err != nil {
		return engine.Record{}, err
	}
	days, err := engine.NormalizeReminderDays(raw.ReminderDays)
	if err != nil {
		return engine.Record{}, err
	}
	if err := validateName(strings.TrimSpace(raw.Name)); err != nil {
		return engine.Record{}, err
	}
	return engine.Record{
		ID:           raw.ID,
		Name:         strings.TrimSpace(raw.Name),
		Month:        month,
		Day:          day,
		Year:         year,
		Notes:        raw.Notes,
		ReminderDays: days,
	}, nil
}
