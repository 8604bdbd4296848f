package rpc

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	quotes         *prometheus.CounterVec
	estimates      *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsRegistry *gatewayMetrics
)

// Metrics returns the lazily-initialised gateway metrics registry.
func Metrics() *gatewayMetrics {
	metricsOnce.Do(func() {
		metricsRegistry = &gatewayMetrics{
			quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "swap",
				Name:      "quotes_total",
				Help:      "Total swap quote requests segmented by outcome.",
			}, []string{"outcome"}),
			estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "bridge",
				Name:      "estimates_total",
				Help:      "Total bridge estimate requests segmented by direction and outcome.",
			}, []string{"direction", "outcome"}),
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "tx",
				Name:      "submissions_total",
				Help:      "Total transaction submissions segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "upstream",
				Name:      "errors_total",
				Help:      "Total upstream service failures segmented by service.",
			}, []string{"service"}),
		}
		prometheus.MustRegister(
			metricsRegistry.quotes,
			metricsRegistry.estimates,
			metricsRegistry.submissions,
			metricsRegistry.upstreamErrors,
		)
	})
	return metricsRegistry
}
