// Package metrics implements the worker's observability boundary with
// Prometheus collectors. The pipeline reports per-delivery classifications
// and timing here, the serving of /metrics belongs to the process entry
// point.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ordersmq/ordersmq/consumer"
)

type collectors struct {
	deliveriesTotal   *prometheus.CounterVec
	processingLatency prometheus.Histogram
}

var collectorsSingleton = sync.OnceValue(func() *collectors {
	return &collectors{
		deliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordersmq",
			Subsystem: "worker",
			Name:      "deliveries_total",
			Help:      "Deliveries by terminal outcome.",
		}, []string{"outcome"}),
		processingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ordersmq",
			Subsystem: "worker",
			Name:      "processing_seconds",
			Help:      "Latency distribution from delivery receipt to terminal transition.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}),
	}
})

// DeliveryObserver adapts the Prometheus collectors to the pipeline's
// observer boundary.
type DeliveryObserver struct {
	collectors *collectors
}

// NewDeliveryObserver returns the process-wide delivery observer.
func NewDeliveryObserver() *DeliveryObserver {
	return &DeliveryObserver{collectors: collectorsSingleton()}
}

// ObserveDelivery implements consumer.Observer.
func (o *DeliveryObserver) ObserveDelivery(class consumer.Classification, elapsed time.Duration) {
	o.collectors.deliveriesTotal.WithLabelValues(string(class)).Inc()
	o.collectors.processingLatency.Observe(elapsed.Seconds())
}
