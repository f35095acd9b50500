package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	Transitions          *prometheus.CounterVec
	NotificationsCreated *prometheus.CounterVec
	Deliveries           *prometheus.CounterVec
	DispatchTime         prometheus.Histogram
	RequestDuration      *prometheus.HistogramVec
	ErrorsCount          *prometheus.CounterVec
}

// NewMetrics creates metrics registered with the default registerer
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates metrics registered with reg. A nil reg leaves them unregistered.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_transitions_total",
			Help:      "Service lifecycle actions by outcome",
		}, []string{"action", "result"}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "The total number of notifications recorded",
		}, []string{"event_type"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Notification hand-offs to outbound sinks",
		}, []string{"sink", "status"}),
		DispatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_batch_seconds",
			Help:      "Time taken to dispatch a batch of notifications",
			Buckets:   prometheus.DefBuckets,
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ErrorsCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Transitions,
			m.NotificationsCreated,
			m.Deliveries,
			m.DispatchTime,
			m.RequestDuration,
			m.ErrorsCount,
		)
	}
	return m
}
