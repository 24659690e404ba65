package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ByteOrder is the byte order of every multi-byte field in the format.
var ByteOrder = binary.LittleEndian

// Field widths in bytes.
const (
	Uint16Size = 2
	Uint32Size = 4
	Uint64Size = 8

	// BlobPrefixSize is the width of the length prefix written before a blob.
	BlobPrefixSize = Uint64Size
)

// Visitor is handed every field of a Fielder in declaration order. Encoders
// read through the pointers, decoders write through them.
type Visitor interface {
	Uint16(v *uint16)
	Uint32(v *uint32)
	Uint64(v *uint64)
	Int64(v *int64)
	// Array visits a fixed-size byte array. Its length is part of the layout.
	Array(b []byte)
}

// Fielder is implemented by structures with a fixed binary layout.
type Fielder interface {
	VisitFields(v Visitor)
}

// Encoder writes fields to an io.Writer. The first error sticks and turns all
// later calls into no-ops, so a layout can be written without per-field checks.
type Encoder struct {
	w       io.Writer
	scratch [Uint64Size]byte
	n       int64
	err     error
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	e.err = err
}

func (e *Encoder) Uint16(v *uint16) {
	ByteOrder.PutUint16(e.scratch[:Uint16Size], *v)
	e.write(e.scratch[:Uint16Size])
}

func (e *Encoder) Uint32(v *uint32) {
	ByteOrder.PutUint32(e.scratch[:Uint32Size], *v)
	e.write(e.scratch[:Uint32Size])
}

func (e *Encoder) Uint64(v *uint64) {
	ByteOrder.PutUint64(e.scratch[:], *v)
	e.write(e.scratch[:])
}

func (e *Encoder) Int64(v *int64) {
	u := uint64(*v)
	e.Uint64(&u)
}

func (e *Encoder) Array(b []byte) {
	e.write(b)
}

// PutUint64 writes a single u64 value.
func (e *Encoder) PutUint64(v uint64) {
	e.Uint64(&v)
}

// Blob writes a u64 length prefix followed by the raw bytes of b.
func (e *Encoder) Blob(b []byte) {
	e.PutUint64(uint64(len(b)))
	e.write(b)
}

// Written returns the number of bytes written so far.
func (e *Encoder) Written() int64 {
	return e.n
}

// Err returns the first error encountered.
func (e *Encoder) Err() error {
	return e.err
}

// Decoder reads fields from an io.Reader with the same sticky-error contract
// as Encoder. A stream that ends mid-field reports io.ErrUnexpectedEOF.
type Decoder struct {
	r       io.Reader
	scratch [Uint64Size]byte
	err     error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

func (d *Decoder) read(p []byte) bool {
	if d.err != nil {
		return false
	}
	_, err := io.ReadFull(d.r, p)
	if err == io.EOF && len(p) > 0 {
		err = io.ErrUnexpectedEOF
	}
	d.err = err
	return err == nil
}

func (d *Decoder) Uint16(v *uint16) {
	if d.read(d.scratch[:Uint16Size]) {
		*v = ByteOrder.Uint16(d.scratch[:Uint16Size])
	}
}

func (d *Decoder) Uint32(v *uint32) {
	if d.read(d.scratch[:Uint32Size]) {
		*v = ByteOrder.Uint32(d.scratch[:Uint32Size])
	}
}

func (d *Decoder) Uint64(v *uint64) {
	if d.read(d.scratch[:]) {
		*v = ByteOrder.Uint64(d.scratch[:])
	}
}

func (d *Decoder) Int64(v *int64) {
	var u uint64
	d.Uint64(&u)
	*v = int64(u)
}

func (d *Decoder) Array(b []byte) {
	d.read(b)
}

// GetUint64 reads a single u64 value.
func (d *Decoder) GetUint64() uint64 {
	var v uint64
	d.Uint64(&v)
	return v
}

// Blob reads a length-prefixed byte slice. limit bounds the accepted length so
// a corrupt prefix cannot trigger an enormous allocation. A negative limit
// means math.MaxInt32.
func (d *Decoder) Blob(limit int64) []byte {
	size := d.GetUint64()
	if d.err != nil {
		return nil
	}
	if limit < 0 {
		limit = math.MaxInt32
	}
	if size > uint64(limit) {
		d.err = &LengthError{Length: size, Limit: limit}
		return nil
	}
	buf := make([]byte, size)
	if !d.read(buf) {
		return nil
	}
	return buf
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}

// LengthError reports a length prefix that exceeds what the caller allows.
type LengthError struct {
	Length uint64
	Limit  int64
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("length prefix %d exceeds limit %d", e.Length, e.Limit)
}

// Encode writes every field of f to w.
func Encode(w io.Writer, f Fielder) error {
	e := NewEncoder(w)
	f.VisitFields(e)
	return e.Err()
}

// Decode fills every field of f from r.
func Decode(r io.Reader, f Fielder) error {
	d := NewDecoder(r)
	f.VisitFields(d)
	return d.Err()
}

// sizer counts bytes without touching any stream.
type sizer struct{ n int }

func (s *sizer) Uint16(*uint16) { s.n += Uint16Size }
func (s *sizer) Uint32(*uint32) { s.n += Uint32Size }
func (s *sizer) Uint64(*uint64) { s.n += Uint64Size }
func (s *sizer) Int64(*int64)   { s.n += Uint64Size }
func (s *sizer) Array(b []byte) { s.n += len(b) }

// SizeOf returns the encoded size of f in bytes.
func SizeOf(f Fielder) int {
	var s sizer
	f.VisitFields(&s)
	return s.n
}
