package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initStateMetrics registers gauges that mirror the last icf.Stats snapshot
// and the capture process itself.
func (r *Registry) initStateMetrics() {
	f := promauto.With(r.registry)

	r.ContainerRecords = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_container_records",
		Help: "Records in the open container, buffered records included",
	})
	r.ContainerBunches = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_container_bunches",
		Help: "Complete bunches in the open container",
	})
	r.ContainerFileBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_container_file_bytes",
		Help: "Size of the container file",
	})
	r.BufferedRecords = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_buffered_records",
		Help: "Records waiting for the next bunch flush",
	})
	r.BufferedBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_buffered_bytes",
		Help: "Payload bytes waiting for the next bunch flush",
	})

	r.ProcessUptime = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_process_uptime_seconds",
		Help: "Seconds since the registry was created",
	})
	r.ProcessGoroutines = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_process_goroutines",
		Help: "Goroutines in the capture process",
	})
	r.ProcessHeapBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "icf_process_heap_bytes",
		Help: "Bytes of live heap objects, including buffered records",
	})
}
