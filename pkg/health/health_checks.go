package health

import (
	"time"

	"github.com/dd0wney/icf/pkg/icf"
)

// ContainerCheck reports the state of a container being written. The
// snapshot must be safe to call from the HTTP goroutine; a non-nil error is
// the last write or flush failure.
func ContainerCheck(snapshot func() (icf.Stats, error)) CheckFunc {
	return func() Check {
		stats, err := snapshot()
		check := Check{
			Details: map[string]any{
				"records":          stats.Records,
				"buffered_records": stats.BufferedRecords,
				"buffered_bytes":   stats.BufferedBytes,
				"bunches":          stats.Bunches,
				"dangling_bytes":   stats.DanglingBytes,
				"file_size":        stats.FileSize,
			},
		}

		switch {
		case err != nil:
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		case stats.DanglingBytes > 0:
			check.Status = StatusDegraded
			check.Message = "Recovery skipped dangling bytes"
		default:
			check.Status = StatusHealthy
			check.Message = "Writable"
		}

		return check
	}
}

// IdleCheck degrades once no record has arrived for maxIdle. A zero last time
// means nothing has been received yet and counts from start.
func IdleCheck(last func() time.Time, start time.Time, maxIdle time.Duration, now func() time.Time) CheckFunc {
	return func() Check {
		seen := last()
		if seen.IsZero() {
			seen = start
		}
		idle := now().Sub(seen)

		check := Check{
			Details: map[string]any{
				"idle_seconds": idle.Seconds(),
			},
		}
		if maxIdle > 0 && idle > maxIdle {
			check.Status = StatusDegraded
			check.Message = "No input for " + idle.Round(time.Second).String()
		} else {
			check.Status = StatusHealthy
			check.Message = "Receiving"
		}
		return check
	}
}
