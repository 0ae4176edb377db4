package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDispoMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispoMetrics(reg)

	m.ObserveTransactionEvent("created", "shipment_schedule", nil, 20*time.Millisecond)
	m.ObserveTransactionEvent("deleted", "", errors.New("boom"), time.Millisecond)
	m.IncPickingRequest("queued")
	m.IncPickingRequest("skipped")
	m.IncPickingRequest("skipped")
	m.ObserveTraceRecords("BACKWARD", 3)
	m.IncTraceUpsert(true)
	m.IncTraceUpsert(false)
	m.ObserveOutboxEvent("picking_requested", "dead_lettered")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "dispo_transaction_events_total", map[string]string{"kind": "created", "branch": "shipment_schedule", "outcome": "success"}); err != nil || got != 1 {
		t.Fatalf("expected created success=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dispo_transaction_events_total", map[string]string{"kind": "deleted", "branch": "unknown", "outcome": "failure"}); err != nil || got != 1 {
		t.Fatalf("expected deleted failure=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dispo_picking_requests_total", map[string]string{"outcome": "skipped"}); err != nil || got != 2 {
		t.Fatalf("expected skipped=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dispo_hu_trace_upserts_total", map[string]string{"result": "inserted"}); err != nil || got != 1 {
		t.Fatalf("expected inserted=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dispo_outbox_events_total", map[string]string{"event_type": "picking_requested", "outcome": "dead_lettered"}); err != nil || got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "dispo_hu_trace_resolved_records", map[string]string{"mode": "BACKWARD"}); err != nil || got != 3 {
		t.Fatalf("expected trace records sum=3, got %f (%v)", got, err)
	}
}

func TestNilDispoMetricsIsNoop(t *testing.T) {
	var m *DispoMetrics
	m.ObserveTransactionEvent("created", "unrelated", nil, time.Second)
	m.IncPickingRequest("queued")
	m.ObserveTraceRecords("NONE", 1)
	m.IncTraceUpsert(true)
	m.ObserveOutboxEvent("transaction_created", "published")

	unregistered := NewDispoMetrics(nil)
	unregistered.IncPickingRequest("queued")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
