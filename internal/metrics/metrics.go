// Package metrics exposes Prometheus instrumentation for the daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the daemon's operational counters. A nil *Collector is
// valid and records nothing, so instrumentation stays optional in tests.
type Collector struct {
	checksTotal     prometheus.Counter
	remindersFired  prometheus.Counter
	recordCount     prometheus.Gauge
	persistFailures prometheus.Counter
	importedTotal   prometheus.Counter
}

// NewCollector registers the daemon metrics on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birthday_tracker_checks_total",
			Help: "Number of daily trigger checks executed.",
		}),
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birthday_tracker_reminders_fired_total",
			Help: "Number of reminder events emitted.",
		}),
		recordCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "birthday_tracker_records",
			Help: "Number of birthday records currently stored.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birthday_tracker_persist_failures_total",
			Help: "Number of failed persistence attempts.",
		}),
		importedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birthday_tracker_imported_contacts_total",
			Help: "Number of contacts added through vCard import.",
		}),
	}
	reg.MustRegister(c.checksTotal, c.remindersFired, c.recordCount, c.persistFailures, c.importedTotal)
	return c
}

// RecordCheck counts one trigger check.
func (c *Collector) RecordCheck() {
	if c == nil {
		return
	}
	c.checksTotal.Inc()
}

// RecordFired counts emitted reminder events.
func (c *Collector) RecordFired(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.remindersFired.Add(float64(n))
}

// SetRecordCount tracks the store size.
func (c *Collector) SetRecordCount(n int) {
	if c == nil {
		return
	}
	c.recordCount.Set(float64(n))
}

// RecordPersistFailure counts a failed save.
func (c *Collector) RecordPersistFailure() {
	if c == nil {
		return
	}
	c.persistFailures.Inc()
}

// RecordImported counts contacts added by an import run.
func (c *Collector) RecordImported(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.importedTotal.Add(float64(n))
}

// Handler returns the /metrics HTTP handler for the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
