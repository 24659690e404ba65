package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initContainerMetrics() {
	r.RecordsWrittenTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_records_written_total",
			Help: "Total number of records accepted by Write",
		},
		[]string{"format"},
	)

	r.RecordBytesWrittenTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_record_bytes_written_total",
			Help: "Total payload bytes accepted by Write",
		},
		[]string{"format"},
	)

	r.FlushesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_flushes_total",
			Help: "Total number of flushes",
		},
		[]string{"trigger", "status"}, // threshold, explicit, close / success, error
	)

	r.FlushDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icf_flush_duration_seconds",
			Help:    "Flush duration in seconds, including fsync",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"trigger"},
	)

	r.BunchRecords = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "icf_bunch_records",
			Help:    "Number of records per flushed bunch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	r.BunchBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "icf_bunch_bytes_total",
			Help: "Total bytes appended by bunch flushes, trailers included",
		},
	)

	r.ReadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_reads_total",
			Help: "Total number of record reads",
		},
		[]string{"format", "source"}, // disk, memory
	)

	r.ReadBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_read_bytes_total",
			Help: "Total payload bytes returned by reads",
		},
		[]string{"format"},
	)

	r.RecoveriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "icf_recoveries_total",
			Help: "Total number of index rebuilds on open",
		},
		[]string{"format"},
	)

	r.RecoveryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icf_recovery_duration_seconds",
			Help:    "Index rebuild duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"format"},
	)

	r.RecoveredRecords = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "icf_recovered_records",
			Help: "Records found by the most recent index rebuild",
		},
		[]string{"format"},
	)

	r.RecoveredBunches = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "icf_recovered_bunches",
			Help: "Bunches found by the most recent index rebuild",
		},
	)

	r.DanglingBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "icf_dangling_bytes_total",
			Help: "Bytes skipped during recovery because they belong to no complete record or bunch",
		},
	)
}
