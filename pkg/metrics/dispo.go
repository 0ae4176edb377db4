package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispoMetrics records reconciliation and lineage activity. A nil *DispoMetrics is a valid
// no-op recorder.
type DispoMetrics struct {
	transactionEvents   *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	pickingRequests     *prometheus.CounterVec
	traceRecords        *prometheus.HistogramVec
	traceUpserts        *prometheus.CounterVec
	outboxEvents        *prometheus.CounterVec
}

// NewDispoMetrics registers the dispo metrics on the provided registerer.
func NewDispoMetrics(reg prometheus.Registerer) *DispoMetrics {
	if reg == nil {
		return &DispoMetrics{}
	}
	transactionEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispo_transaction_events_total",
		Help: "Transaction events reconciled against candidates.",
	}, []string{"kind", "branch", "outcome"})
	transactionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispo_transaction_event_duration_seconds",
		Help:    "Duration of transaction event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	pickingRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispo_picking_requests_total",
		Help: "Picking requests queued or skipped after reconciliation.",
	}, []string{"outcome"})
	traceRecords := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispo_hu_trace_resolved_records",
		Help:    "Number of HU trace records returned per lineage query.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"mode"})
	traceUpserts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispo_hu_trace_upserts_total",
		Help: "HU trace events stored, by insert or update.",
	}, []string{"result"})
	outboxEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispo_outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(transactionEvents, transactionDuration, pickingRequests, traceRecords, traceUpserts, outboxEvents)
	return &DispoMetrics{
		transactionEvents:   transactionEvents,
		transactionDuration: transactionDuration,
		pickingRequests:     pickingRequests,
		traceRecords:        traceRecords,
		traceUpserts:        traceUpserts,
		outboxEvents:        outboxEvents,
	}
}

// ObserveTransactionEvent counts one handled transaction event and its duration.
func (m *DispoMetrics) ObserveTransactionEvent(kind, branch string, err error, duration time.Duration) {
	if m == nil || m.transactionEvents == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.transactionEvents.WithLabelValues(normalizeLabel(kind), normalizeLabel(branch), outcome).Inc()
	m.transactionDuration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncPickingRequest counts a picking request as "queued" or "skipped".
func (m *DispoMetrics) IncPickingRequest(outcome string) {
	if m == nil || m.pickingRequests == nil {
		return
	}
	m.pickingRequests.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveTraceRecords records the size of a resolved lineage.
func (m *DispoMetrics) ObserveTraceRecords(mode string, count int) {
	if m == nil || m.traceRecords == nil {
		return
	}
	m.traceRecords.WithLabelValues(normalizeLabel(mode)).Observe(float64(count))
}

// IncTraceUpsert counts a stored trace event.
func (m *DispoMetrics) IncTraceUpsert(inserted bool) {
	if m == nil || m.traceUpserts == nil {
		return
	}
	result := "updated"
	if inserted {
		result = "inserted"
	}
	m.traceUpserts.WithLabelValues(result).Inc()
}

// ObserveOutboxEvent counts one publisher decision: "published", "retried" or "dead_lettered".
func (m *DispoMetrics) ObserveOutboxEvent(eventType, outcome string) {
	if m == nil || m.outboxEvents == nil {
		return
	}
	m.outboxEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
