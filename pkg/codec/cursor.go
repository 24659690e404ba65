// Package codec reads and writes the fixed-width fields used by the ICF
// container format.
//
// All scalars are little-endian. Composite structures list their fields once
// through VisitFields and are driven in either direction by Encode and Decode,
// so a layout is declared in exactly one place.
package codec

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotWritable is returned by Cursor.Write when the underlying stream does
// not implement io.Writer (for example a memory-mapped read-only file).
var ErrNotWritable = errors.New("stream is not writable")

// Cursor is a positioned view over a seekable stream. It keeps its own copy of
// the position so callers can ask where they are without a Seek round trip.
type Cursor struct {
	stream io.ReadSeeker
	pos    int64
}

// NewCursor wraps stream. The cursor starts at the stream's current position.
func NewCursor(stream io.ReadSeeker) (*Cursor, error) {
	pos, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream position: %w", err)
	}
	return &Cursor{stream: stream, pos: pos}, nil
}

// Position returns the current offset from the start of the stream.
func (c *Cursor) Position() int64 {
	return c.pos
}

// SeekTo moves to an absolute offset.
func (c *Cursor) SeekTo(offset int64) error {
	if offset == c.pos {
		return nil
	}
	pos, err := c.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to %d: %w", offset, err)
	}
	c.pos = pos
	return nil
}

// SeekEnd moves to the end of the stream and returns the new position, which
// is the stream length.
func (c *Cursor) SeekEnd() (int64, error) {
	pos, err := c.stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}
	c.pos = pos
	return pos, nil
}

// Read implements io.Reader so a Cursor can feed a Decoder directly.
func (c *Cursor) Read(p []byte) (int, error) {
	n, err := c.stream.Read(p)
	c.pos += int64(n)
	return n, err
}

// ReadN reads exactly n bytes into a newly allocated slice.
func (c *Cursor) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := c.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadFull fills p completely. A stream that ends early yields
// io.ErrUnexpectedEOF (or io.EOF when nothing at all could be read).
func (c *Cursor) ReadFull(p []byte) error {
	start := c.pos
	if _, err := io.ReadFull(c, p); err != nil {
		return fmt.Errorf("failed to read %d bytes at %d: %w", len(p), start, err)
	}
	return nil
}

// Write writes all of p at the current position.
func (c *Cursor) Write(p []byte) (int, error) {
	w, ok := c.stream.(io.Writer)
	if !ok {
		return 0, ErrNotWritable
	}
	n, err := w.Write(p)
	c.pos += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %d bytes at %d: %w", len(p), c.pos-int64(n), err)
	}
	return n, nil
}
