package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_http_requests_total",
			Help: "Total number of HTTP requests to the metrics endpoint",
		},
		[]string{"code", "method"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "icf_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)
}
