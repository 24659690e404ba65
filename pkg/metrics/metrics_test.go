package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.RecordsWrittenTotal == nil {
		t.Error("RecordsWrittenTotal not initialized")
	}
	if r.FlushDuration == nil {
		t.Error("FlushDuration not initialized")
	}
	if r.DanglingBytesTotal == nil {
		t.Error("DanglingBytesTotal not initialized")
	}
	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestRecordWrite(t *testing.T) {
	r := NewRegistry()

	r.RecordWrite("bunch", 100)
	r.RecordWrite("bunch", 50)
	r.RecordWrite("simple", 7)

	if got := counterValue(t, r.RecordsWrittenTotal.WithLabelValues("bunch")); got != 2 {
		t.Errorf("bunch records = %v, want 2", got)
	}
	if got := counterValue(t, r.RecordBytesWrittenTotal.WithLabelValues("bunch")); got != 150 {
		t.Errorf("bunch bytes = %v, want 150", got)
	}
	if got := counterValue(t, r.RecordsWrittenTotal.WithLabelValues("simple")); got != 1 {
		t.Errorf("simple records = %v, want 1", got)
	}
}

func TestRecordFlush(t *testing.T) {
	r := NewRegistry()

	r.RecordFlush(icf.TriggerThreshold, 10, 4096, 2*time.Millisecond, nil)
	r.RecordFlush(icf.TriggerThreshold, 10, 4096, 3*time.Millisecond, errors.New("disk full"))
	r.RecordFlush(icf.TriggerClose, 2, 128, time.Millisecond, nil)

	if got := counterValue(t, r.FlushesTotal.WithLabelValues(icf.TriggerThreshold, "success")); got != 1 {
		t.Errorf("threshold successes = %v, want 1", got)
	}
	if got := counterValue(t, r.FlushesTotal.WithLabelValues(icf.TriggerThreshold, "error")); got != 1 {
		t.Errorf("threshold errors = %v, want 1", got)
	}
	if got := counterValue(t, r.BunchBytesTotal); got != 4096+128 {
		t.Errorf("bunch bytes = %v, want %v", got, 4096+128)
	}

	var metric dto.Metric
	if err := r.BunchRecords.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("Sample count = %v, want 2", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() != 12 {
		t.Errorf("Sample sum = %v, want 12", metric.Histogram.GetSampleSum())
	}
}

func TestRecordRecoveryAndDangling(t *testing.T) {
	r := NewRegistry()

	r.RecordRecovery("bunch", 42, 3, 5*time.Millisecond)
	r.RecordDangling(17)
	r.RecordDangling(3)

	if got := gaugeValue(t, r.RecoveredRecords.WithLabelValues("bunch")); got != 42 {
		t.Errorf("recovered records = %v, want 42", got)
	}
	if got := gaugeValue(t, r.RecoveredBunches); got != 3 {
		t.Errorf("recovered bunches = %v, want 3", got)
	}
	if got := counterValue(t, r.DanglingBytesTotal); got != 20 {
		t.Errorf("dangling bytes = %v, want 20", got)
	}
}

func TestRecordRead(t *testing.T) {
	r := NewRegistry()

	r.RecordRead("bunch", 10, true)
	r.RecordRead("bunch", 10, false)
	r.RecordRead("bunch", 10, false)

	if got := counterValue(t, r.ReadsTotal.WithLabelValues("bunch", "memory")); got != 1 {
		t.Errorf("memory reads = %v, want 1", got)
	}
	if got := counterValue(t, r.ReadsTotal.WithLabelValues("bunch", "disk")); got != 2 {
		t.Errorf("disk reads = %v, want 2", got)
	}
	if got := counterValue(t, r.ReadBytesTotal.WithLabelValues("bunch")); got != 30 {
		t.Errorf("read bytes = %v, want 30", got)
	}
}

func TestRegistryObservesContainer(t *testing.T) {
	r := NewRegistry()
	path := filepath.Join(t.TempDir(), "observed.icf")

	c, err := icf.Open(path, icf.ModeTrunc,
		icf.WithObserver(r),
		icf.WithLogger(logging.NewNopLogger()),
		icf.WithBunchThreshold(8))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, rec := range []string{"12345", "67890", "x"} {
		if err := c.Write([]byte(rec)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := counterValue(t, r.RecordsWrittenTotal.WithLabelValues("bunch")); got != 3 {
		t.Errorf("records written = %v, want 3", got)
	}
	if got := counterValue(t, r.FlushesTotal.WithLabelValues(icf.TriggerThreshold, "success")); got != 1 {
		t.Errorf("threshold flushes = %v, want 1", got)
	}
	if got := counterValue(t, r.FlushesTotal.WithLabelValues(icf.TriggerClose, "success")); got != 1 {
		t.Errorf("close flushes = %v, want 1", got)
	}

	c, err = icf.Open(path, icf.ModeRead, icf.WithObserver(r), icf.WithLogger(logging.NewNopLogger()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	if got := gaugeValue(t, r.RecoveredRecords.WithLabelValues("bunch")); got != 3 {
		t.Errorf("recovered records = %v, want 3", got)
	}
	if got := gaugeValue(t, r.RecoveredBunches); got != 2 {
		t.Errorf("recovered bunches = %v, want 2", got)
	}
}

func TestRecordStats(t *testing.T) {
	r := NewRegistry()
	r.RecordStats(icf.Stats{
		Records:         12,
		BufferedRecords: 2,
		BufferedBytes:   64,
		Bunches:         3,
		FileSize:        4096,
	})

	if got := gaugeValue(t, r.ContainerRecords); got != 12 {
		t.Errorf("container records = %v, want 12", got)
	}
	if got := gaugeValue(t, r.ContainerBunches); got != 3 {
		t.Errorf("container bunches = %v, want 3", got)
	}
	if got := gaugeValue(t, r.ContainerFileBytes); got != 4096 {
		t.Errorf("file bytes = %v, want 4096", got)
	}
	if got := gaugeValue(t, r.BufferedBytes); got != 64 {
		t.Errorf("buffered bytes = %v, want 64", got)
	}

	// A flush empties the buffer; the next snapshot must lower the gauges.
	r.RecordStats(icf.Stats{Records: 12, Bunches: 4, FileSize: 4200})
	if got := gaugeValue(t, r.BufferedRecords); got != 0 {
		t.Errorf("buffered records = %v, want 0", got)
	}
}

func TestProcessGaugesRefreshOnScrape(t *testing.T) {
	r := NewRegistry()
	if got := gaugeValue(t, r.ProcessGoroutines); got != 0 {
		t.Fatalf("goroutines before scrape = %v, want 0", got)
	}

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if got := gaugeValue(t, r.ProcessGoroutines); got < 1 {
		t.Errorf("goroutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.ProcessHeapBytes); got <= 0 {
		t.Errorf("heap bytes = %v, want > 0", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordWrite("simple", 3)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `icf_records_written_total{format="simple"} 1`) {
		t.Error("records written counter missing from scrape")
	}
	if got := counterValue(t, r.HTTPRequestsTotal.WithLabelValues("200", "get")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

func TestRegistryGather(t *testing.T) {
	r := NewRegistry()

	metrics, err := r.registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Vectors only appear once a label set exists; plain metrics always do
	expectedMetrics := []string{
		"icf_bunch_bytes_total",
		"icf_dangling_bytes_total",
		"icf_process_uptime_seconds",
		"icf_container_records",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordWrite("bunch", 1)
				r.updateProcess()
			}
		}()
	}
	wg.Wait()

	if got := counterValue(t, r.RecordsWrittenTotal.WithLabelValues("bunch")); got != 1000 {
		t.Errorf("records written = %v, want 1000", got)
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordWrite("bunch", 1)
	r.RecordRead("bunch", 1, false)

	metrics, err := r.registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Verify all metrics have the icf_ prefix
	for _, m := range metrics {
		name := m.GetName()
		if !strings.HasPrefix(name, "icf_") {
			t.Errorf("Metric %s does not have icf_ prefix", name)
		}
	}
}

func BenchmarkRecordWrite(b *testing.B) {
	r := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordWrite("bunch", 512)
	}
}
