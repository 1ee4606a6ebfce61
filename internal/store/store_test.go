package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/storage"
)

// fakeBackend is an in-memory storage.Store with failure injection.
type fakeBackend struct {
	records   []storage.RawRecord
	marker    string
	saveCount int
	failSave  bool
	failLoad  bool
}

func (f *fakeBackend) LoadRecords(_ context.Context) ([]storage.RawRecord, error) {
	if f.failLoad {
		return nil, errors.New("disk gone")
	}
	return f.records, nil
}

func (f *fakeBackend) SaveRecords(_ context.Context, records []storage.RawRecord) error {
	if f.failSave {
		return errors.New("disk full")
	}
	f.records = records
	f.saveCount++
	return nil
}

func (f *fakeBackend) LoadLastFired(_ context.Context) (string, error) { return f.marker, nil }

func (f *fakeBackend) SaveLastFired(_ context.Context, day string) error {
	f.marker = day
	return nil
}

func (f *fakeBackend) Close() error { return nil }

func newTestStore(t *testing.T, backend *fakeBackend) *Store {
	t.Helper()
	s := New(backend, eventbus.New(), nil, nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestAdd(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend)
	ctx := context.Background()

	rec, err := s.Add(ctx, AddFields{Name: "Alice", Date: "1990-06-15", Notes: "cake"})
	require.NoError(t, err)

	assert.Len(t, rec.ID, config.RecordIDLength)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, 1990, rec.Year)
	assert.Equal(t, "1990-06-15", rec.DateString())
	assert.Equal(t, 1, backend.saveCount, "Mutation persists synchronously")

	// Yearless form.
	rec2, err := s.Add(ctx, AddFields{Name: "Bob", Date: "12-01"})
	require.NoError(t, err)
	assert.False(t, rec2.YearKnown())
	assert.NotEqual(t, rec.ID, rec2.ID)
}

func TestAddValidation(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	ctx := context.Background()

	tests := []struct {
		name   string
		fields AddFields
	}{
		{"Empty name", AddFields{Name: "  ", Date: "06-15"}},
		{"Bad date", AddFields{Name: "X", Date: "2020-13-40"}},
		{"Negative reminder offset", AddFields{Name: "X", Date: "06-15", ReminderDays: []int{-1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(ctx, tt.fields)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Empty(t, s.Records(), "Rejected input leaves the store unchanged")
		})
	}
}

func TestEdit(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	ctx := context.Background()

	rec, err := s.Add(ctx, AddFields{Name: "Alice", Date: "1990-06-15", Notes: "old"})
	require.NoError(t, err)

	t.Run("Partial update keeps other fields", func(t *testing.T) {
		notes := "new"
		got, err := s.Edit(ctx, rec.ID, EditFields{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, "new", got.Notes)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, "1990-06-15", got.DateString())
	})

	t.Run("Date change", func(t *testing.T) {
		date := "03-01"
		got, err := s.Edit(ctx, rec.ID, EditFields{Date: &date})
		require.NoError(t, err)
		assert.False(t, got.YearKnown())
		assert.Equal(t, "03-01", got.DateString())
	})

	t.Run("Invalid date leaves record untouched", func(t *testing.T) {
		bad := "zzz"
		_, err := s.Edit(ctx, rec.ID, EditFields{Date: &bad})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		got, ok := s.Get(rec.ID)
		require.True(t, ok)
		assert.Equal(t, "03-01", got.DateString())
	})

	t.Run("Unknown id", func(t *testing.T) {
		name := "X"
		_, err := s.Edit(ctx, "deadbeef", EditFields{Name: &name})
		var nferr *NotFoundError
		assert.ErrorAs(t, err, &nferr)
	})
}

func TestRemove(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	ctx := context.Background()

	rec, err := s.Add(ctx, AddFields{Name: "Alice", Date: "06-15"})
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, rec.ID))
	assert.Empty(t, s.Records())

	var nferr *NotFoundError
	assert.ErrorAs(t, s.Remove(ctx, rec.ID), &nferr, "Second remove reports not found")
}

// TestPersistFailureKeepsMemoryState pins down the durability contract:
// a failing backend is logged, the in-memory mutation still applies.
func TestPersistFailureKeepsMemoryState(t *testing.T) {
	backend := &fakeBackend{failSave: true}
	s := newTestStore(t, backend)

	rec, err := s.Add(context.Background(), AddFields{Name: "Alice", Date: "06-15"})
	require.NoError(t, err)

	got, ok := s.Get(rec.ID)
	assert.True(t, ok)
	assert.Equal(t, "Alice", got.Name)
}

func TestLoadSkipsInvalidRecords(t *testing.T) {
	backend := &fakeBackend{records: []storage.RawRecord{
		{ID: "good1234", Name: "Alice", Date: "1990-06-15"},
		{ID: "bad00001", Name: "Broken", Date: "not-a-date"},
		{ID: "bad00002", Name: "", Date: "06-15"},
		{ID: "good5678", Name: "Bob", Date: "12-01"},
	}}

	s := New(backend, eventbus.New(), nil, nil)
	require.NoError(t, s.Load(context.Background()))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "Bob", records[1].Name)
}

func TestLoadBackendFailure(t *testing.T) {
	s := New(&fakeBackend{failLoad: true}, eventbus.New(), nil, nil)
	var perr *PersistenceError
	assert.ErrorAs(t, s.Load(context.Background()), &perr)
}

func TestList(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	ctx := context.Background()
	// Reference "today": June 15th, 2025
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	_, err := s.Add(ctx, AddFields{Name: "Carol", Date: "06-22"})
	require.NoError(t, err)
	_, err = s.Add(ctx, AddFields{Name: "Alice", Date: "1985-06-15"})
	require.NoError(t, err)
	_, err = s.Add(ctx, AddFields{Name: "Bob", Date: "06-16"})
	require.NoError(t, err)
	_, err = s.Add(ctx, AddFields{Name: "Amy", Date: "06-16"})
	require.NoError(t, err)

	list := s.List(today, []int{7, 1, 0})
	require.Len(t, list, 4)

	assert.Equal(t, "Alice", list[0].Record.Name)
	assert.Equal(t, 0, list[0].DaysUntil)
	assert.True(t, list[0].AgeKnown)
	assert.Equal(t, 40, list[0].AgeTurning)
	assert.Equal(t, "40th", list[0].AgeOrdinal)

	// Name breaks the tie on equal days-until.
	assert.Equal(t, "Amy", list[1].Record.Name)
	assert.Equal(t, "Bob", list[2].Record.Name)
	assert.Equal(t, 1, list[2].DaysUntil)

	assert.Equal(t, "Carol", list[3].Record.Name)
	assert.Equal(t, 7, list[3].DaysUntil)
	assert.False(t, list[3].AgeKnown)
}

func TestPublishesUpdateEvents(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(&fakeBackend{}, bus, nil, nil)
	require.NoError(t, s.Load(context.Background()))
	ctx := context.Background()

	rec, err := s.Add(ctx, AddFields{Name: "Alice", Date: "06-15"})
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, rec.ID))

	for i := 0; i < 2; i++ {
		select {
		case e := <-ch:
			assert.Equal(t, config.EventUpdated, e.Type)
		case <-time.After(time.Second):
			t.Fatal("expected an update event")
		}
	}
}

func TestHasSame(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	_, err := s.Add(context.Background(), AddFields{Name: "Alice", Date: "1990-06-15"})
	require.NoError(t, err)

	assert.True(t, s.HasSame("Alice", 1990, 6, 15))
	assert.False(t, s.HasSame("Alice", 0, 6, 15), "Year is part of identity")
	assert.False(t, s.HasSame("Bob", 1990, 6, 15))
}
