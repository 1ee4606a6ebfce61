// Package notify fans reminder events out to the configured sinks.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/trigger"
)

// Sink delivers a single reminder to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, evt trigger.ReminderEvent) error
}

// Dispatcher subscribes to the event bus and forwards reminder events to
// every sink. A failing sink never blocks the others.
type Dispatcher struct {
	log *slog.Logger
	bus eventbus.Bus

	mu    sync.Mutex
	sinks []Sink
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(bus eventbus.Bus, sinks []Sink, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		log:   log.With(config.LogKeyComponent, config.CompNotify),
		bus:   bus,
		sinks: sinks,
	}
}

// SetSinks replaces the sink set for subsequent deliveries. Settings
// reloads use this to enable or reconfigure sinks without a restart.
func (d *Dispatcher) SetSinks(sinks []Sink) {
	d.mu.Lock()
	d.sinks = sinks
	d.mu.Unlock()
}

func (d *Dispatcher) currentSinks() []Sink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.sinks)
}

// Run consumes reminder events until the context is canceled. Intended to
// be run as a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	ch, unsub := d.bus.Subscribe(config.EventBusBuffer)
	defer unsub()

	d.log.Info(config.MsgDispatchStart, config.LogKeyCount, len(d.currentSinks()))
	for {
		select {
		case <-ctx.Done():
			d.log.Info(config.MsgDispatchStop)
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Type != config.EventReminder {
				continue
			}
			evt, ok := e.Data.(trigger.ReminderEvent)
			if !ok {
				continue
			}
			d.deliver(ctx, evt)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt trigger.ReminderEvent) {
	for _, sink := range d.currentSinks() {
		sctx, cancel := context.WithTimeout(ctx, config.SinkSendTimeout)
		err := sink.Send(sctx, evt)
		cancel()
		if err != nil {
			d.log.Error(config.ErrSinkSend,
				config.LogKeySink, sink.Name(),
				config.LogKeyID, evt.ID,
				config.LogKeyError, err,
			)
			continue
		}
		d.log.Debug(config.MsgSinkDelivered,
			config.LogKeySink, sink.Name(),
			config.LogKeyID, evt.ID,
		)
	}
}

// LogSink writes reminders to the structured log. Always enabled so a
// bare deployment still surfaces reminders somewhere.
type LogSink struct {
	Log *slog.Logger
}

func (s *LogSink) Name() string { return config.SinkNameLog }

func (s *LogSink) Send(_ context.Context, evt trigger.ReminderEvent) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	attrs := []any{
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyID, evt.ID,
		config.LogKeyName, evt.Name,
		config.LogKeyDate, evt.Date,
		config.LogKeyDays, evt.DaysUntil,
	}
	if evt.AgeTurning != nil {
		attrs = append(attrs, config.LogKeyValue, *evt.AgeTurning)
	}
	log.Info(config.MsgReminderFired, attrs...)
	return nil
}
