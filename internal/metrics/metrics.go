// Package metrics holds the Prometheus collectors exported at /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SalesRecorded       prometheus.Counter
	InvoiceOutcomes     *prometheus.CounterVec
	NotificationOutcome *prometheus.CounterVec
	QueueDepth          *prometheus.GaugeVec
	DeadLetters         *prometheus.CounterVec
	GatewayBreakerState prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		SalesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_recorded_total",
			Help: "Sales accepted and persisted",
		}),
		InvoiceOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_invoice_jobs_total",
				Help: "Invoice render+upload attempts by outcome",
			},
			[]string{"outcome"},
		),
		NotificationOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_notification_jobs_total",
				Help: "WhatsApp dispatch attempts by outcome",
			},
			[]string{"outcome"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pos_queue_depth",
				Help: "Pending jobs per Redis queue",
			},
			[]string{"queue"},
		),
		DeadLetters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_dead_letters_total",
				Help: "Jobs moved to a dead letter queue",
			},
			[]string{"queue"},
		),
		GatewayBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_gateway_breaker_state",
			Help: "Messaging gateway circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
	}
	reg.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.SalesRecorded,
		m.InvoiceOutcomes, m.NotificationOutcome, m.QueueDepth,
		m.DeadLetters, m.GatewayBreakerState,
	)
	return m
}

func (m *Metrics) SaleRecorded() {
	if m != nil {
		m.SalesRecorded.Inc()
	}
}

func (m *Metrics) Invoice(outcome string) {
	if m != nil {
		m.InvoiceOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.NotificationOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) DeadLetter(queue string) {
	if m != nil {
		m.DeadLetters.WithLabelValues(queue).Inc()
	}
}

func (m *Metrics) SetQueueDepth(queue string, n int64) {
	if m != nil {
		m.QueueDepth.WithLabelValues(queue).Set(float64(n))
	}
}

func (m *Metrics) SetBreakerState(state int) {
	if m != nil {
		m.GatewayBreakerState.Set(float64(state))
	}
}
