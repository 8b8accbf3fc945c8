package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.ObserveSubmission("created", 120*time.Millisecond)
	m.ObserveSubmission("insufficient_stock", 5*time.Millisecond)
	m.IncPriceMismatch()
	m.IncNumberRetry()
	m.IncStockConflict("INSUFFICIENT_STOCK")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "order_submissions_total", "outcome", "created"); err != nil || got != 1 {
		t.Fatalf("expected created=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_stock_conflicts_total", "reason", "INSUFFICIENT_STOCK"); err != nil || got != 1 {
		t.Fatalf("expected stock conflict=1, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "order_price_mismatch_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one price mismatch")
	}
	hist := findMetricFamily(mfs, "order_submit_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two duration samples")
	}
}

func TestPaymentMetricsNormalizesEmptyOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)
	m.IncNotification("")
	m.IncNotification("duplicate")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "payment_notifications_total", "outcome", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown=1, got %f (%v)", got, err)
	}
}

func TestHTTPMetricsLabelsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/orders", 201, 30*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "status", "201"); err != nil || got != 1 {
		t.Fatalf("expected status 201 count 1, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/orders"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f (%v)", got, err)
	}
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order_created")
	m.IncFailed("order_created")
	m.IncDLQ("order_created", "max_attempts")
	m.ObserveBatch(time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_dlq_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected dlq=1, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewOrderMetrics(nil).ObserveSubmission("created", time.Second)
	NewPaymentMetrics(nil).IncNotification("processed")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
	NewOutboxMetrics(nil).IncPublished("order_created")

	var m *OrderMetrics
	m.IncPriceMismatch()
}

func TestCronJobMetricsTracksOutcomesAndRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSuccess("outbox-retention")
	m.IncFailure("outbox-retention")
	m.AddRowsDeleted("outbox-retention", 12)
	m.AddRowsDeleted("outbox-retention", 0)
	m.ObserveDuration("outbox-retention", 2*time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "maintenance_job_runs_total", "outcome", "failure"); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "maintenance_rows_deleted_total", "job", "outbox-retention"); err != nil || got != 12 {
		t.Fatalf("expected rows=12, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "maintenance_job_duration_seconds", "job", "outbox-retention"); err != nil || got != 2 {
		t.Fatalf("expected duration sum 2s, got %f (%v)", got, err)
	}
}

func TestNilCronJobMetricsIsSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("job")
	m.AddRowsDeleted("job", 3)
	NewCronJobMetrics(nil).ObserveDuration("job", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
