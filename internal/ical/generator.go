// Package ical renders the birthday collection as a subscribable
// iCalendar feed.
package ical

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
)

// Generator builds the ICS document. Summary is injected so the calendar
// layer stays free of localization concerns.
type Generator struct {
	Clock   engine.Clock
	Summary func(name string, age int, ageKnown bool) string

	log *slog.Logger
}

// NewGenerator creates a generator using the given clock and summary
// formatter. Both may be nil; sane fallbacks apply.
func NewGenerator(clock engine.Clock, summary func(string, int, bool) string, log *slog.Logger) *Generator {
	if clock == nil {
		clock = engine.RealClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		Clock:   clock,
		Summary: summary,
		log:     log.With(config.LogKeyComponent, config.CompCalendar),
	}
}

// Generate renders every record as all-day events spanning the previous,
// current and next year so calendar clients can scroll without an
// immediate refresh. Reminder offsets become DISPLAY alarms. defaults is
// the global reminder schedule used for records without an override.
func (g *Generator) Generate(records []engine.Record, defaults []int) ([]byte, error) {
	now := g.Clock.Now()

	cal := goical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := goical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := goical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, r := range records {
		for _, e := range g.recordEvents(r, defaults, now) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	if len(cal.Children) == 0 {
		g.log.Debug(config.MsgCalendarStub)
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := goical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.log.Debug(config.MsgCalendarBuilt,
		config.LogKeyCount, len(records),
		config.LogKeyEvents, len(cal.Children),
	)
	return buf.Bytes(), nil
}

// recordEvents builds the per-year events for one record. Years before
// the person was born are skipped. A leap-day birthday falls on Feb 28
// in non-leap years.
func (g *Generator) recordEvents(r engine.Record, defaults []int, now time.Time) []*goical.Event {
	years := []int{now.Year() - 1, now.Year(), now.Year() + 1}
	loc := now.Location()

	var events []*goical.Event
	for _, y := range years {
		if r.YearKnown() && y < r.Year {
			continue
		}

		age := 0
		if r.YearKnown() {
			age = y - r.Year
		}

		summary := fmt.Sprintf(config.FallbackSummary, r.Name)
		if g.Summary != nil {
			summary = g.Summary(r.Name, age, r.YearKnown())
		}

		event := goical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, r.ID, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)
		if r.Notes != "" {
			event.Props.SetText(config.PropDescription, r.Notes)
		}

		dtStartProp := goical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(engine.OccurrenceInYear(y, r.Month, r.Day, loc))
		event.Props.Set(dtStartProp)

		for _, offset := range r.EffectiveReminderDays(defaults) {
			addAlarm(event, triggerDuration(offset), summary)
		}

		events = append(events, event)
	}
	return events
}

// addAlarm appends a DISPLAY alarm to the event. The trigger value is set
// directly to keep the ISO 8601 duration free of a VALUE=TEXT parameter.
func addAlarm(event *goical.Event, trigger, description string) {
	alarm := goical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	triggerProp := goical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

func triggerDuration(offset int) string {
	if offset <= 0 {
		return config.TriggerSameDay
	}
	return fmt.Sprintf(config.FormatTriggerBefore, offset)
}
