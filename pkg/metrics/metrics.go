package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/icf/pkg/icf"
)

var _ icf.Observer = (*Registry)(nil)

// RecordWrite records a record accepted by Write
func (r *Registry) RecordWrite(format string, bytes int) {
	r.RecordsWrittenTotal.WithLabelValues(format).Inc()
	r.RecordBytesWrittenTotal.WithLabelValues(format).Add(float64(bytes))
}

// RecordFlush records a flush attempt
func (r *Registry) RecordFlush(trigger string, records int, bytes int64, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.FlushesTotal.WithLabelValues(trigger, status).Inc()
	r.FlushDuration.WithLabelValues(trigger).Observe(d.Seconds())

	if err == nil && records > 0 {
		r.BunchRecords.Observe(float64(records))
		r.BunchBytesTotal.Add(float64(bytes))
	}
}

// RecordRecovery records an index rebuild
func (r *Registry) RecordRecovery(format string, records uint64, bunches int, d time.Duration) {
	r.RecoveriesTotal.WithLabelValues(format).Inc()
	r.RecoveryDuration.WithLabelValues(format).Observe(d.Seconds())
	r.RecoveredRecords.WithLabelValues(format).Set(float64(records))
	r.RecoveredBunches.Set(float64(bunches))
}

// RecordRead records a record read; cached reads were served from memory
func (r *Registry) RecordRead(format string, bytes int, cached bool) {
	source := "disk"
	if cached {
		source = "memory"
	}
	r.ReadsTotal.WithLabelValues(format, source).Inc()
	r.ReadBytesTotal.WithLabelValues(format).Add(float64(bytes))
}

// RecordDangling records bytes skipped by recovery
func (r *Registry) RecordDangling(bytes int64) {
	r.DanglingBytesTotal.Add(float64(bytes))
}

// RecordStats mirrors a container snapshot into the state gauges
func (r *Registry) RecordStats(s icf.Stats) {
	r.ContainerRecords.Set(float64(s.Records))
	r.ContainerBunches.Set(float64(s.Bunches))
	r.ContainerFileBytes.Set(float64(s.FileSize))
	r.BufferedRecords.Set(float64(s.BufferedRecords))
	r.BufferedBytes.Set(float64(s.BufferedBytes))
}

// updateProcess refreshes the process gauges before each scrape
func (r *Registry) updateProcess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.ProcessUptime.Set(time.Since(r.started).Seconds())
	r.ProcessGoroutines.Set(float64(runtime.NumGoroutine()))
	r.ProcessHeapBytes.Set(float64(mem.HeapAlloc))
}

// Handler returns an instrumented HTTP handler serving this registry
func (r *Registry) Handler() http.Handler {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	h = promhttp.InstrumentHandlerCounter(r.HTTPRequestsTotal, h)
	h = promhttp.InstrumentHandlerInFlight(r.HTTPRequestsInFlight, h)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.updateProcess()
		h.ServeHTTP(w, req)
	})
}
