package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Container write path
	RecordsWrittenTotal     *prometheus.CounterVec
	RecordBytesWrittenTotal *prometheus.CounterVec
	FlushesTotal            *prometheus.CounterVec
	FlushDuration           *prometheus.HistogramVec
	BunchRecords            prometheus.Histogram
	BunchBytesTotal         prometheus.Counter

	// Container read path
	ReadsTotal         *prometheus.CounterVec
	ReadBytesTotal     *prometheus.CounterVec
	RecoveriesTotal    *prometheus.CounterVec
	RecoveryDuration   *prometheus.HistogramVec
	RecoveredRecords   *prometheus.GaugeVec
	RecoveredBunches   prometheus.Gauge
	DanglingBytesTotal prometheus.Counter

	// HTTP Metrics (scrape endpoint)
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge

	// Container state, refreshed from icf.Stats
	ContainerRecords   prometheus.Gauge
	ContainerBunches   prometheus.Gauge
	ContainerFileBytes prometheus.Gauge
	BufferedRecords    prometheus.Gauge
	BufferedBytes      prometheus.Gauge

	// Process
	ProcessUptime     prometheus.Gauge
	ProcessGoroutines prometheus.Gauge
	ProcessHeapBytes  prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
	mu       sync.Mutex
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		started:  time.Now(),
	}

	// Initialize all metrics
	r.initContainerMetrics()
	r.initHTTPMetrics()
	r.initStateMetrics()

	return r
}
