// Package icf implements the ICF indexed container format: an append-mostly
// file of opaque byte records addressed by their zero-based write order.
//
// Two layouts share one header. The simple layout frames each record with a
// u64 length. The bunch layout buffers records in memory and writes them in
// bunches, each followed by a trailer that points at the previous one, so the
// index can be rebuilt from the end of the file without reading payloads.
//
// A Container is not safe for concurrent use.
package icf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/icf/pkg/codec"
	"github.com/dd0wney/icf/pkg/logging"
)

// Container is an open ICF file.
type Container struct {
	path   string
	mode   Mode
	header Header
	opts   *options
	st     *store
	eng    engine
	closed bool
}

// mappedFile serves reads from a read-only memory mapping.
type mappedFile struct {
	*io.SectionReader
	ra *mmap.ReaderAt
}

func (m *mappedFile) Close() error {
	return m.ra.Close()
}

func openHandle(path string, mode Mode, o *options) (handle, error) {
	if o.mapped {
		ra, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		return &mappedFile{SectionReader: io.NewSectionReader(ra, 0, int64(ra.Len())), ra: ra}, nil
	}

	flag := os.O_RDWR
	switch mode {
	case ModeRead:
		if o.readOnly {
			flag = os.O_RDONLY
		}
	case ModeTrunc:
		flag |= os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Open opens or creates the container at path. For an existing file the
// header decides the layout and compression, and the index is rebuilt
// before Open returns.
func Open(path string, mode Mode, opts ...Option) (*Container, error) {
	o, err := buildOptions(mode, opts)
	if err != nil {
		return nil, withPath(err, path)
	}

	f, err := openHandle(path, mode, o)
	if err != nil {
		return nil, newError("open").path(path).cause(err).err()
	}

	c, err := open(f, path, mode, o)
	if err != nil {
		f.Close()
		return nil, withPath(err, path)
	}
	return c, nil
}

func open(f handle, path string, mode Mode, o *options) (*Container, error) {
	timer := logging.StartTimer(o.logger, "container opened",
		logging.Path(path),
		logging.String("mode", mode.String()))

	cur, err := codec.NewCursor(f)
	if err != nil {
		return nil, newError("open").cause(err).err()
	}
	size, err := cur.SeekEnd()
	if err != nil {
		return nil, newError("open").cause(err).err()
	}

	var h Header
	if mode == ModeTrunc || (mode == ModeAppend && size == 0) {
		h = newHeader(o)
		if err := writeHeader(cur, &h); err != nil {
			return nil, err
		}
		size = h.Size()
		if err := syncHandle(f, o); err != nil {
			return nil, newError("open").cause(err).err()
		}
	} else {
		if h, err = readHeader(cur, size); err != nil {
			return nil, err
		}
	}
	o.format = h.Version
	o.compression = h.Compression

	st := &store{
		file:      f,
		cur:       cur,
		path:      path,
		dataStart: h.Size(),
		opts:      o,
		log:       o.logger.With(logging.Component("icf")),
		obs:       o.observer,
	}
	eng := newEngine(h.Version, st)
	if err := eng.recover(size); err != nil {
		return nil, err
	}

	timer.End(logging.Format(h.Version.String()), logging.Records(eng.size()))

	return &Container{
		path:   path,
		mode:   mode,
		header: h,
		opts:   o,
		st:     st,
		eng:    eng,
	}, nil
}

func syncHandle(f handle, o *options) error {
	if s, ok := f.(syncer); ok && o.sync {
		return s.Sync()
	}
	return nil
}

func (c *Container) closedError(op string) error {
	return newError(op).path(c.path).kind(ErrClosed).err()
}

// Write appends a record. The container keeps its own copy of rec. In the
// bunch layout the record may stay buffered until the next flush.
func (c *Container) Write(rec []byte) error {
	if c.closed {
		return c.closedError("write")
	}
	if c.opts.readOnly {
		return newError("write").path(c.path).kind(ErrReadOnly).err()
	}
	return withPath(c.eng.write(rec), c.path)
}

// ReadAt returns an independent copy of record i.
func (c *Container) ReadAt(i uint64) ([]byte, error) {
	if c.closed {
		return nil, c.closedError("read")
	}
	rec, err := c.eng.readAt(i)
	if err != nil {
		return nil, withPath(err, c.path)
	}
	return rec, nil
}

// ReadRange returns records [start, end).
func (c *Container) ReadRange(start, end uint64) ([][]byte, error) {
	if c.closed {
		return nil, c.closedError("read range")
	}
	if start > end || end > c.eng.size() {
		return nil, newError("read range").path(c.path).index(end).kind(ErrIndex).
			causef("range [%d, %d) outside %d records", start, end, c.eng.size()).err()
	}
	out := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		rec, err := c.ReadAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Iterate calls fn for every record in index order. An error from fn stops
// the iteration and is returned unchanged.
func (c *Container) Iterate(fn func(i uint64, rec []byte) error) error {
	if c.closed {
		return c.closedError("iterate")
	}
	n := c.eng.size()
	for i := uint64(0); i < n; i++ {
		rec, err := c.ReadAt(i)
		if err != nil {
			return err
		}
		if err := fn(i, rec); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of records, buffered ones included. It stays
// valid after Close.
func (c *Container) Size() uint64 {
	return c.eng.size()
}

// Flush writes any buffered records and fsyncs the file unless sync writes
// are disabled. On failure the buffered records are kept for a later retry.
func (c *Container) Flush() error {
	if c.closed {
		return c.closedError("flush")
	}
	if c.opts.readOnly {
		return nil
	}
	return withPath(c.eng.flush(TriggerExplicit), c.path)
}

// Close flushes buffered records and releases the file. The file is closed
// even when the flush fails; both errors are returned. Closing twice is a
// no-op.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if !c.opts.readOnly {
		if err := c.eng.flush(TriggerClose); err != nil {
			errs = append(errs, withPath(err, c.path))
		}
	}
	if err := c.st.file.Close(); err != nil {
		errs = append(errs, newError("close").path(c.path).cause(err).err())
	}

	err := errors.Join(errs...)
	if err != nil {
		c.st.log.Error("failed to close container cleanly",
			logging.Path(c.path),
			logging.Error(err))
	}
	return err
}

// Timestamp returns the creation time stored in the header.
func (c *Container) Timestamp() time.Time {
	return c.header.Created()
}

// Header returns a copy of the header.
func (c *Container) Header() Header {
	h := c.header
	h.Extension = append([]byte(nil), c.header.Extension...)
	return h
}

// Stats returns a snapshot of the container's counters.
func (c *Container) Stats() Stats {
	s := Stats{Format: c.header.Version}
	c.eng.stats(&s)
	return s
}

// Path returns the file path given to Open.
func (c *Container) Path() string {
	return c.path
}

// Format returns the layout recorded in the header.
func (c *Container) Format() Format {
	return c.header.Version
}

// Mode returns the mode the container was opened with.
func (c *Container) Mode() Mode {
	return c.mode
}

// String summarises the container for display.
func (c *Container) String() string {
	s := c.Stats()
	return fmt.Sprintf("ICF container %s\n  created:     %s\n  version:     %d (%s)\n  compression: %s\n  entries:     %d\n  bunches:     %d\n  file size:   %d bytes",
		c.path,
		c.Timestamp().UTC().Format(time.RFC3339),
		uint16(c.header.Version), c.header.Version,
		c.header.Compression,
		s.Records,
		s.Bunches,
		s.FileSize)
}
