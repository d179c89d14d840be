package outbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the outbox Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RecordedTotal     *prometheus.CounterVec
	ProcessedTotal    *prometheus.CounterVec
	FailedTotal       *prometheus.CounterVec
	DeadLetteredTotal *prometheus.CounterVec
	PassesTotal       *prometheus.CounterVec
	PassesSkipped     prometheus.Counter
	EligibleRecords   prometheus.Gauge
	PassDuration      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "outbox_events_recorded_total", Help: "Events appended to the outbox."},
			[]string{"event_type"},
		),
		ProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "outbox_events_processed_total", Help: "Events marked processed by a committed pass."},
			[]string{"event_type"},
		),
		FailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "outbox_events_failed_total", Help: "Failed handling attempts committed as retries."},
			[]string{"event_type"},
		),
		DeadLetteredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "outbox_events_dead_lettered_total", Help: "Events that reached the retry ceiling."},
			[]string{"event_type"},
		),
		PassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "outbox_passes_total", Help: "Processing passes by outcome."},
			[]string{"outcome"},
		),
		PassesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "outbox_passes_skipped_total", Help: "Triggers skipped because a pass was still running."},
		),
		EligibleRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "outbox_pass_eligible_records", Help: "Eligible records selected by the latest pass."},
		),
		PassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "outbox_pass_duration_seconds", Help: "Duration of processing passes.", Buckets: prometheus.DefBuckets},
		),
	}
	reg.MustRegister(
		m.RecordedTotal,
		m.ProcessedTotal,
		m.FailedTotal,
		m.DeadLetteredTotal,
		m.PassesTotal,
		m.PassesSkipped,
		m.EligibleRecords,
		m.PassDuration,
	)
	return m
}

func (m *Metrics) recorded(eventType string) {
	if m == nil {
		return
	}
	m.RecordedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) skipped() {
	if m == nil {
		return
	}
	m.PassesSkipped.Inc()
}

func (m *Metrics) passStarted(eligible int) {
	if m == nil {
		return
	}
	m.EligibleRecords.Set(float64(eligible))
}

func (m *Metrics) passFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(outcome).Inc()
	m.PassDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) committed(outcomes []outcome, maxRetries int) {
	if m == nil {
		return
	}
	for _, o := range outcomes {
		eventType := o.record.EventType
		if o.err == nil {
			m.ProcessedTotal.WithLabelValues(eventType).Inc()
			continue
		}
		m.FailedTotal.WithLabelValues(eventType).Inc()
		if o.deadLettered(maxRetries) {
			m.DeadLetteredTotal.WithLabelValues(eventType).Inc()
		}
	}
}
