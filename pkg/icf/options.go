package icf

import (
	"fmt"
	"time"

	"github.com/dd0wney/icf/pkg/logging"
)

// Mode controls how Open treats the file on disk.
type Mode int

const (
	// ModeRead opens an existing container. The file must exist.
	ModeRead Mode = iota
	// ModeTrunc creates the file or truncates it and writes a fresh header.
	ModeTrunc
	// ModeAppend creates the file if needed, otherwise recovers it and
	// positions new writes after the last record.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeTrunc:
		return "trunc"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "read", "trunc" or "append".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "read", "r":
		return ModeRead, nil
	case "trunc", "w":
		return ModeTrunc, nil
	case "append", "a":
		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

const (
	// DefaultBunchThreshold is the buffered byte count above which a bunch
	// is flushed automatically.
	DefaultBunchThreshold = 1_000_000

	// DefaultBunchCacheSize is the number of decoded compressed bunches kept
	// in memory.
	DefaultBunchCacheSize = 10
)

type options struct {
	format      Format
	threshold   int64
	compression Compression
	subID       [4]byte
	ext         []byte
	sync        bool
	cacheSize   int
	readOnly    bool
	mapped      bool
	logger      logging.Logger
	observer    Observer
	now         func() time.Time
}

func defaultOptions() *options {
	return &options{
		format:    FormatBunch,
		threshold: DefaultBunchThreshold,
		sync:      true,
		cacheSize: DefaultBunchCacheSize,
		observer:  nopObserver{},
		now:       time.Now,
	}
}

// Option configures a container. Format, compression, sub-identifier and
// header extension only apply when a new header is written; an existing file
// keeps what its header says.
type Option func(*options) error

// WithFormat selects the layout of a newly created container.
func WithFormat(f Format) Option {
	return func(o *options) error {
		if f != FormatSimple && f != FormatBunch {
			return fmt.Errorf("unknown %s", f)
		}
		o.format = f
		return nil
	}
}

// WithBunchThreshold sets the buffered byte count that triggers a flush.
func WithBunchThreshold(n int64) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("bunch threshold %d is negative", n)
		}
		o.threshold = n
		return nil
	}
}

// WithCompression compresses each bunch of a new bunch-format container.
func WithCompression(c Compression) Option {
	return func(o *options) error {
		if c != CompressionNone && c != CompressionSnappy {
			return fmt.Errorf("unknown %s", c)
		}
		o.compression = c
		return nil
	}
}

// WithSubIdentifier stores up to four opaque bytes in the header.
func WithSubIdentifier(id []byte) Option {
	return func(o *options) error {
		if len(id) > len(o.subID) {
			return fmt.Errorf("sub-identifier is %d bytes, limit %d", len(id), len(o.subID))
		}
		o.subID = [4]byte{}
		copy(o.subID[:], id)
		return nil
	}
}

// WithHeaderExtension stores opaque bytes after the fixed header.
func WithHeaderExtension(ext []byte) Option {
	return func(o *options) error {
		if len(ext) > 0xFFFF {
			return fmt.Errorf("header extension is %d bytes, limit %d", len(ext), 0xFFFF)
		}
		o.ext = append([]byte(nil), ext...)
		return nil
	}
}

// WithSyncWrites controls whether Flush fsyncs the file. Enabled by default.
func WithSyncWrites(enabled bool) Option {
	return func(o *options) error {
		o.sync = enabled
		return nil
	}
}

// WithBunchCache sets how many decoded compressed bunches are cached.
func WithBunchCache(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("bunch cache size %d must be at least 1", n)
		}
		o.cacheSize = n
		return nil
	}
}

// WithReadOnly opens the file without write access. Write returns ErrReadOnly.
func WithReadOnly() Option {
	return func(o *options) error {
		o.readOnly = true
		return nil
	}
}

// WithMappedReads serves reads from a memory mapping of the file. It implies
// WithReadOnly and is only valid with ModeRead.
func WithMappedReads() Option {
	return func(o *options) error {
		o.readOnly = true
		o.mapped = true
		return nil
	}
}

// WithLogger sets the logger. Defaults to logging.DefaultLogger().
func WithLogger(l logging.Logger) Option {
	return func(o *options) error {
		if l == nil {
			return fmt.Errorf("logger is nil")
		}
		o.logger = l
		return nil
	}
}

// WithObserver receives write, flush, read and recovery events.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs == nil {
			return fmt.Errorf("observer is nil")
		}
		o.observer = obs
		return nil
	}
}

// WithClock overrides the time source used for header and trailer timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return fmt.Errorf("clock is nil")
		}
		o.now = now
		return nil
	}
}

func buildOptions(mode Mode, opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, newError("open").kind(ErrInvalidOption).cause(err).err()
		}
	}
	if mode < ModeRead || mode > ModeAppend {
		return nil, newError("open").kind(ErrInvalidOption).causef("unknown %s", mode).err()
	}
	if o.readOnly && mode != ModeRead {
		return nil, newError("open").kind(ErrInvalidOption).causef("read-only access requires read mode, got %s", mode).err()
	}
	if o.format == FormatSimple && o.compression != CompressionNone {
		return nil, newError("open").kind(ErrInvalidOption).causef("simple format does not support %s", o.compression).err()
	}
	if o.logger == nil {
		o.logger = logging.DefaultLogger()
	}
	return o, nil
}
