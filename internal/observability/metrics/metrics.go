package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks the webhook ingestion pipeline.
type Metrics struct {
	WebhooksReceived  prometheus.Counter
	SignatureRejected prometheus.Counter
	PayloadRejected   prometheus.Counter
	OrdersStored      prometheus.Counter
	StorageFailures   prometheus.Counter
	SSEClients        prometheus.Gauge
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		WebhooksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Total number of webhook deliveries received",
		}),
		SignatureRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_signature_rejected_total",
			Help: "Total number of webhook deliveries rejected for an invalid signature",
		}),
		PayloadRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_payload_rejected_total",
			Help: "Total number of webhook deliveries rejected for a malformed payload",
		}),
		OrdersStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_stored_total",
			Help: "Total number of orders upserted",
		}),
		StorageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_storage_failures_total",
			Help: "Total number of order upserts that failed",
		}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sse_clients",
			Help: "Number of currently connected SSE clients",
		}),
	}

	collectors := []prometheus.Collector{
		m.WebhooksReceived,
		m.SignatureRejected,
		m.PayloadRejected,
		m.OrdersStored,
		m.StorageFailures,
		m.SSEClients,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}
