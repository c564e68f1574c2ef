package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry          *prometheus.Registry
	transformTotal    *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
	sourceBytes       prometheus.Counter
	outputBytes       prometheus.Counter
	deliveryFailures  prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		transformTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelflow_edge_transforms_total",
			Help: "Total object lambda events handled, by output format and outcome code.",
		}, []string{"format", "outcome"}),
		transformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelflow_edge_transform_duration_seconds",
			Help:    "End to end event latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		sourceBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelflow_edge_source_bytes_total",
			Help: "Total bytes fetched from source objects.",
		}),
		outputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelflow_edge_output_bytes_total",
			Help: "Total bytes of transformed output delivered.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelflow_edge_delivery_failures_total",
			Help: "Total responses that could not be delivered to the caller.",
		}),
	}
	registry.MustRegister(
		m.transformTotal,
		m.transformDuration,
		m.sourceBytes,
		m.outputBytes,
		m.deliveryFailures,
	)
	return m
}

func (m *metrics) gatherer() prometheus.Gatherer {
	return m.registry
}

func outcomeLabel(resp Response) string {
	if resp.Failed() {
		return resp.ErrorCode
	}
	return "ok"
}
