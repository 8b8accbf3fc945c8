package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics instruments the order submission pipeline.
type OrderMetrics struct {
	submissions     *prometheus.CounterVec
	duration        prometheus.Histogram
	priceMismatches prometheus.Counter
	numberRetries   prometheus.Counter
	stockConflicts  *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submit_duration_seconds",
		Help:    "Duration of order submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	priceMismatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_price_mismatch_total",
		Help: "Order lines whose client price differed from the server price.",
	})
	numberRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_number_retries_total",
		Help: "Order commits retried after an order number collision.",
	})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_stock_conflicts_total",
		Help: "Submissions rejected for stock or availability.",
	}, []string{"reason"})
	reg.MustRegister(submissions, duration, priceMismatches, numberRetries, stockConflicts)
	return &OrderMetrics{
		submissions:     submissions,
		duration:        duration,
		priceMismatches: priceMismatches,
		numberRetries:   numberRetries,
		stockConflicts:  stockConflicts,
	}
}

// ObserveSubmission records a finished submission.
func (m *OrderMetrics) ObserveSubmission(outcome string, elapsed time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncPriceMismatch counts one mismatched line.
func (m *OrderMetrics) IncPriceMismatch() {
	if m == nil || m.priceMismatches == nil {
		return
	}
	m.priceMismatches.Inc()
}

// IncNumberRetry counts one order-number collision retry.
func (m *OrderMetrics) IncNumberRetry() {
	if m == nil || m.numberRetries == nil {
		return
	}
	m.numberRetries.Inc()
}

// IncStockConflict counts a rejection, reason is the error code.
func (m *OrderMetrics) IncStockConflict(reason string) {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.WithLabelValues(normalizeLabel(reason)).Inc()
}
