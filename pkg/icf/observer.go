package icf

import (
	"fmt"
	"time"
)

// Flush triggers reported to Observer.RecordFlush.
const (
	TriggerThreshold = "threshold"
	TriggerExplicit  = "explicit"
	TriggerClose     = "close"
)

// Observer receives container events. pkg/metrics provides a Prometheus
// implementation. Calls are made synchronously from the container's methods.
type Observer interface {
	RecordWrite(format string, bytes int)
	RecordFlush(trigger string, records int, bytes int64, d time.Duration, err error)
	RecordRecovery(format string, records uint64, bunches int, d time.Duration)
	RecordRead(format string, bytes int, cached bool)
	RecordDangling(bytes int64)
}

type nopObserver struct{}

func (nopObserver) RecordWrite(string, int)                              {}
func (nopObserver) RecordFlush(string, int, int64, time.Duration, error) {}
func (nopObserver) RecordRecovery(string, uint64, int, time.Duration)    {}
func (nopObserver) RecordRead(string, int, bool)                         {}
func (nopObserver) RecordDangling(int64)                                 {}

// Stats is a point-in-time summary of a container.
type Stats struct {
	Format          Format
	Records         uint64 // including buffered records
	FlushedRecords  uint64
	BufferedRecords int
	BufferedBytes   int64
	Bunches         int
	DanglingBytes   int64 // bytes recovery found outside any complete record or bunch
	FileSize        int64
	CacheHits       uint64
	CacheMisses     uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("format=%s records=%d buffered=%d bunches=%d file_size=%d dangling=%d",
		s.Format, s.Records, s.BufferedRecords, s.Bunches, s.FileSize, s.DanglingBytes)
}
