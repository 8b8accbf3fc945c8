package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics counts payment webhook deliveries.
type PaymentMetrics struct {
	notifications *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_notifications_total",
		Help: "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(notifications)
	return &PaymentMetrics{notifications: notifications}
}

// IncNotification records a delivery outcome such as processed or signature_invalid.
func (m *PaymentMetrics) IncNotification(outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}
