package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/trigger"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []trigger.ReminderEvent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, evt trigger.ReminderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return s.err
}

func (s *recordingSink) received() []trigger.ReminderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trigger.ReminderEvent(nil), s.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	bus := eventbus.New()
	first := &recordingSink{name: "first"}
	second := &recordingSink{name: "second"}
	d := NewDispatcher(bus, []Sink{first, second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(20 * time.Millisecond)

	evt := trigger.ReminderEvent{ID: "abcd1234", Name: "Alice", Date: "1990-06-15"}
	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: evt})

	waitFor(t, func() bool { return len(first.received()) == 1 && len(second.received()) == 1 })
	assert.Equal(t, "Alice", first.received()[0].Name)
	assert.Equal(t, "abcd1234", second.received()[0].ID)
}

func TestDispatcherIgnoresOtherEvents(t *testing.T) {
	bus := eventbus.New()
	sink := &recordingSink{name: "only"}
	d := NewDispatcher(bus, []Sink{sink}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	bus.Publish(eventbus.Event{Type: config.EventUpdated})
	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: "not a reminder event"})
	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: trigger.ReminderEvent{ID: "real0001", Name: "Bob"}})

	waitFor(t, func() bool { return len(sink.received()) == 1 })
	assert.Equal(t, "real0001", sink.received()[0].ID)
}

func TestDispatcherFailingSinkDoesNotBlockOthers(t *testing.T) {
	bus := eventbus.New()
	broken := &recordingSink{name: "broken", err: errors.New("boom")}
	healthy := &recordingSink{name: "healthy"}
	d := NewDispatcher(bus, []Sink{broken, healthy}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: trigger.ReminderEvent{ID: "x1", Name: "Carol"}})
	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: trigger.ReminderEvent{ID: "x2", Name: "Dave"}})

	waitFor(t, func() bool { return len(healthy.received()) == 2 })
	require.Len(t, broken.received(), 2, "The broken sink keeps being attempted")
	assert.Equal(t, "Carol", healthy.received()[0].Name)
	assert.Equal(t, "Dave", healthy.received()[1].Name)
}

// TestDispatcherSetSinks: sinks swapped while the dispatcher runs apply
// to subsequent deliveries, which is how settings reloads enable or
// reconfigure sinks without a restart.
func TestDispatcherSetSinks(t *testing.T) {
	bus := eventbus.New()
	initial := &recordingSink{name: "initial"}
	d := NewDispatcher(bus, []Sink{initial}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: trigger.ReminderEvent{ID: "s1", Name: "Grace"}})
	waitFor(t, func() bool { return len(initial.received()) == 1 })

	replacement := &recordingSink{name: "replacement"}
	d.SetSinks([]Sink{replacement})

	bus.Publish(eventbus.Event{Type: config.EventReminder, Data: trigger.ReminderEvent{ID: "s2", Name: "Heidi"}})
	waitFor(t, func() bool { return len(replacement.received()) == 1 })

	assert.Equal(t, "s2", replacement.received()[0].ID)
	require.Len(t, initial.received(), 1, "The replaced sink sees no further events")
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	bus := eventbus.New()
	sink := &recordingSink{name: "late"}
	d := NewDispatcher(bus, []Sink{sink}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestLogSinkHandlesYearlessEvent(t *testing.T) {
	sink := &LogSink{}
	assert.Equal(t, config.SinkNameLog, sink.Name())

	err := sink.Send(context.Background(), trigger.ReminderEvent{
		ID:        "y1",
		Name:      "Eve",
		Date:      "06-15",
		DaysUntil: 3,
	})
	assert.NoError(t, err)

	age := 30
	err = sink.Send(context.Background(), trigger.ReminderEvent{
		ID:         "y2",
		Name:       "Frank",
		Date:       "1996-06-15",
		AgeTurning: &age,
	})
	assert.NoError(t, err)
}
