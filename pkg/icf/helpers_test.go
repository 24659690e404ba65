package icf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/icf/pkg/logging"
)

var fixedClock = func() time.Time { return time.Unix(1_700_000_000, 0) }

// testOptions keeps tests quiet and deterministic.
func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithLogger(logging.NewNopLogger()),
		WithClock(fixedClock),
		WithSyncWrites(false),
	}, extra...)
}

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func mustOpen(t *testing.T, path string, mode Mode, opts ...Option) *Container {
	t.Helper()
	c, err := Open(path, mode, testOptions(opts...)...)
	require.NoError(t, err)
	return c
}

func writeAll(t *testing.T, c *Container, records [][]byte) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, c.Write(r))
	}
}

func readAll(t *testing.T, c *Container) [][]byte {
	t.Helper()
	out := make([][]byte, 0, c.Size())
	require.NoError(t, c.Iterate(func(_ uint64, rec []byte) error {
		out = append(out, rec)
		return nil
	}))
	return out
}

func appendBytes(t *testing.T, path string, b []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write(b)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	return fi.Size()
}

// countingObserver records the events a container reports.
type countingObserver struct {
	nopObserver
	writes   int
	flushes  map[string]int
	dangling int64
	cached   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{flushes: make(map[string]int)}
}

func (o *countingObserver) RecordWrite(string, int) { o.writes++ }

func (o *countingObserver) RecordFlush(trigger string, records int, _ int64, _ time.Duration, err error) {
	if err == nil && records > 0 {
		o.flushes[trigger]++
	}
}

func (o *countingObserver) RecordDangling(n int64) { o.dangling += n }

func (o *countingObserver) RecordRead(_ string, _ int, cached bool) {
	if cached {
		o.cached++
	}
}
