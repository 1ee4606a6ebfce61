package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []RawRecord {
	return []RawRecord{
		{ID: "a1b2c3d4", Name: "Alice", Date: "1990-06-15", ReminderDays: []int{7, 1, 0}, Notes: "cake"},
		{ID: "e5f6a7b8", Name: "Bob Jones", Date: "12-01", ReminderDays: []int{}},
	}
}

// backendTest exercises the Store contract shared by both drivers.
func backendTest(t *testing.T, st Store) {
	ctx := context.Background()

	// Fresh storage: empty set, empty marker.
	records, err := st.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	marker, err := st.LoadLastFired(ctx)
	require.NoError(t, err)
	assert.Empty(t, marker)

	// Records round-trip.
	want := sampleRecords()
	require.NoError(t, st.SaveRecords(ctx, want))

	got, err := st.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Marker round-trip with overwrite.
	require.NoError(t, st.SaveLastFired(ctx, "2025-06-14"))
	require.NoError(t, st.SaveLastFired(ctx, "2025-06-15"))

	marker, err = st.LoadLastFired(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", marker)

	// Shrinking the set sticks.
	require.NoError(t, st.SaveRecords(ctx, want[:1]))
	got, err = st.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[:1], got)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "birthdays.json")
	st, err := Open(Config{Driver: "file", Path: path})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	backendTest(t, st)
}

func TestFileStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "birthdays.json")

	st, err := Open(Config{Driver: "file", Path: path})
	require.NoError(t, err)
	require.NoError(t, st.SaveRecords(ctx, sampleRecords()))
	require.NoError(t, st.SaveLastFired(ctx, "2025-01-02"))
	require.NoError(t, st.Close())

	st, err = Open(Config{Driver: "file", Path: path})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	records, err := st.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	marker, err := st.LoadLastFired(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", marker)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "birthdays.db")
	st, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	backendTest(t, st)
}

func TestSQLiteStorePreservesOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "birthdays.db")
	st, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	want := []RawRecord{
		{ID: "3", Name: "Zed", Date: "01-03", ReminderDays: []int{}},
		{ID: "1", Name: "Amy", Date: "01-01", ReminderDays: []int{}},
		{ID: "2", Name: "Mia", Date: "01-02", ReminderDays: []int{}},
	}
	require.NoError(t, st.SaveRecords(ctx, want))

	got, err := st.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got, "Insertion order survives the round trip")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis", Path: "x"})
	assert.Error(t, err)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"})
	assert.Error(t, err)

	_, err = Open(Config{Driver: "sqlite"})
	assert.Error(t, err)
}
