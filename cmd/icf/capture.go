package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/icf/pkg/codec"
	"github.com/dd0wney/icf/pkg/health"
	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
	"github.com/dd0wney/icf/pkg/metrics"
)

// maxCaptureRecord bounds a single record read from stdin.
const maxCaptureRecord = 64 << 20

// recordReader yields one record per call and io.EOF at a clean end of input.
type recordReader func() ([]byte, error)

func lineReader(r io.Reader) recordReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxCaptureRecord)
	return func() ([]byte, error) {
		if sc.Scan() {
			return append([]byte(nil), sc.Bytes()...), nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
}

// framedReader reads [u64 len][payload] frames, the same framing the simple
// layout uses on disk.
func framedReader(r io.Reader) recordReader {
	br := bufio.NewReader(r)
	return func() ([]byte, error) {
		if _, err := br.Peek(1); err != nil {
			return nil, err
		}
		d := codec.NewDecoder(br)
		rec := d.Blob(maxCaptureRecord)
		return rec, d.Err()
	}
}

type captured struct {
	rec []byte
	err error
}

// captureState is the view of a running capture shared with the health
// endpoints. Only the capture loop touches the container itself.
type captureState struct {
	mu       sync.Mutex
	stats    icf.Stats
	lastErr  error
	lastSeen time.Time
	registry *metrics.Registry // optional
}

func (s *captureState) update(c *icf.Container, err error, seen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = c.Stats()
	if s.registry != nil {
		s.registry.RecordStats(s.stats)
	}
	if err != nil {
		s.lastErr = err
	}
	if seen {
		s.lastSeen = time.Now()
	}
}

func (s *captureState) snapshot() (icf.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, s.lastErr
}

func (s *captureState) last() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func runCapture(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := newFlagSet("capture", "<container>", os.Stderr)
	var common commonFlags
	var cf containerFlags
	common.register(fs)
	cf.register(fs)
	framing := fs.String("framing", "line", "Input framing (line, length)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
	flushEvery := fs.Duration("flush-every", 0, "Flush buffered records at this interval (0 = only on threshold)")
	maxIdle := fs.Duration("max-idle", 0, "Report degraded health after this long without input (0 = never)")
	modeName := fs.String("mode", "append", "Open mode (append, trunc)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := container(fs)
	if err != nil {
		return err
	}
	mode, err := icf.ParseMode(*modeName)
	if err != nil {
		return err
	}
	if mode == icf.ModeRead {
		return fmt.Errorf("capture cannot open a container in %s mode", mode)
	}

	var next recordReader
	switch *framing {
	case "line":
		next = lineReader(stdin)
	case "length":
		next = framedReader(stdin)
	default:
		return fmt.Errorf("unknown framing %q", *framing)
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	opts, err := cf.options(cfg, logger)
	if err != nil {
		return err
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	registry := metrics.NewRegistry()
	opts = append(opts, icf.WithObserver(registry))

	c, err := icf.Open(path, mode, opts...)
	if err != nil {
		return err
	}
	state := &captureState{registry: registry}
	state.update(c, nil, false)

	if cfg.Metrics.Addr != "" {
		checker := health.NewHealthChecker()
		checker.RegisterCheck("container", health.ContainerCheck(state.snapshot))
		checker.RegisterCheck("input", health.IdleCheck(state.last, time.Now(), *maxIdle, time.Now))
		checker.RegisterReadinessCheck("container", health.ContainerCheck(state.snapshot))

		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		checker.Mount(mux)

		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", logging.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info("serving metrics and health", logging.String("addr", cfg.Metrics.Addr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := capture(ctx, c, next, *flushEvery, state)
	if cerr := c.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	fmt.Fprintf(stdout, "captured %d records into %s (%d total)\n", n, path, c.Size())
	return err
}

// capture writes records from next until end of input or ctx is cancelled.
// Reading happens on its own goroutine; the container is only touched here.
func capture(ctx context.Context, c *icf.Container, next recordReader, flushEvery time.Duration, state *captureState) (int, error) {
	records := make(chan captured)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(records)
		for {
			rec, err := next()
			select {
			case records <- captured{rec: rec, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var tick <-chan time.Time
	if flushEvery > 0 {
		ticker := time.NewTicker(flushEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, nil
		case <-tick:
			err := c.Flush()
			state.update(c, err, false)
			if err != nil {
				return n, err
			}
		case r := <-records:
			if errors.Is(r.err, io.EOF) {
				return n, nil
			}
			if r.err != nil {
				return n, fmt.Errorf("failed to read record %d: %w", n, r.err)
			}
			err := c.Write(r.rec)
			state.update(c, err, true)
			if err != nil {
				return n, err
			}
			n++
		}
	}
}
