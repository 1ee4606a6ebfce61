package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager owns the live Settings value.
//
// Options updates (notification time, default reminder days) and settings
// file reloads replace the value wholesale; readers always see a complete,
// validated snapshot. Invalid input is rejected and the previous value
// stays active.
type Manager struct {
	path string

	mu  sync.RWMutex
	cur *Settings

	subsMu sync.Mutex
	subs   []func(*Settings)
}

// NewManager loads the settings file and returns a manager holding it.
func NewManager(path string) (*Manager, error) {
	s, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cur: s}, nil
}

// Current returns the active settings snapshot. Callers must not mutate it.
func (m *Manager) Current() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// NotificationTime returns the active daily trigger time.
func (m *Manager) NotificationTime() (hour, minute int) {
	s := m.Current()
	hour, minute, _ = ParseNotificationTime(s.Notifications.Time)
	return hour, minute
}

// ReminderDefaults returns the active default reminder offsets.
func (m *Manager) ReminderDefaults() []int {
	s := m.Current()
	days, err := ParseReminderDays(s.Notifications.DefaultReminderDays)
	if err != nil {
		// Current() only ever holds validated settings; keep a safe
		// fallback anyway.
		return append([]int(nil), DefaultReminderDays...)
	}
	return days
}

// UpdateOptions validates and applies new option values. Empty strings keep
// the current value. On any validation failure nothing changes.
func (m *Manager) UpdateOptions(notificationTime, defaultReminderDays string) error {
	m.mu.Lock()
	next := *m.cur
	m.mu.Unlock()

	if notificationTime != "" {
		if _, _, err := ParseNotificationTime(notificationTime); err != nil {
			return err
		}
		next.Notifications.Time = notificationTime
	}
	if defaultReminderDays != "" {
		days, err := ParseReminderDays(defaultReminderDays)
		if err != nil {
			return err
		}
		next.Notifications.DefaultReminderDays = FormatReminderDays(days)
	}

	m.commit(&next)
	slog.Info(MsgOptionsUpdated,
		LogKeyComponent, CompConfig,
		LogKeyTime, next.Notifications.Time,
		LogKeyValue, next.Notifications.DefaultReminderDays,
	)
	return nil
}

// Subscribe registers a callback invoked with each newly committed settings
// value. Callbacks run synchronously on the committing goroutine and must
// return quickly.
func (m *Manager) Subscribe(fn func(*Settings)) {
	m.subsMu.Lock()
	m.subs = append(m.subs, fn)
	m.subsMu.Unlock()
}

func (m *Manager) commit(s *Settings) {
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()

	m.subsMu.Lock()
	subs := slices.Clone(m.subs)
	m.subsMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// Watch re-reads the settings file on filesystem changes until the context
// is cancelled. A reload that fails to parse or validate is rejected and
// the previous settings remain active.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsWatch, err)
	}
	defer func() { _ = w.Close() }()

	// Watch the directory: editors replace files via rename, which drops
	// a watch placed on the file itself.
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsWatch, err)
	}

	// Debounce bursts of write events from a single save.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(250 * time.Millisecond)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn(ErrSettingsWatch,
				LogKeyComponent, CompConfig,
				LogKeyError, err,
			)
		case <-pending:
			pending = nil
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	s, err := LoadSettings(m.path)
	if err != nil {
		slog.Warn(ErrSettingsReload,
			LogKeyComponent, CompConfig,
			LogKeyFile, m.path,
			LogKeyError, err,
		)
		return
	}
	m.commit(s)
	slog.Info(MsgSettingsReload,
		LogKeyComponent, CompConfig,
		LogKeyFile, m.path,
	)
}
