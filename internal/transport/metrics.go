package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered globally via promauto; tests measure increments
// rather than absolute values.
var (
	flowExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_flow_executions_total",
		Help: "Flow executions by gateway, flow and outcome.",
	}, []string{"gateway", "flow", "outcome"})

	flowLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connector_flow_duration_seconds",
		Help:    "End-to-end flow execution latency, including the gateway call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "flow"})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_webhook_events_total",
		Help: "Inbound webhook events by gateway and canonical event type.",
	}, []string{"gateway", "event"})
)

const (
	outcomeSuccess      = "success"
	outcomeError        = "error"
	outcomeNotSupported = "not_supported"
	outcomeCircuitOpen  = "circuit_open"
	outcomeNetwork      = "network_error"
)

// CountWebhookEvent records one classified inbound webhook event.
func CountWebhookEvent(gateway, event string) {
	webhookEvents.WithLabelValues(gateway, event).Inc()
}
