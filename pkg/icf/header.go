package icf

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/dd0wney/icf/pkg/codec"
)

// Identifier is the magic value at offset 0 of every container.
var Identifier = [4]byte{'I', 'C', 'F', 0}

// headerFixedSize is the width of the header before the extension bytes.
const headerFixedSize = 24

// Format selects the on-disk record layout. It is stored as the header version.
type Format uint16

const (
	// FormatSimple frames every record as [u64 len][payload].
	FormatSimple Format = 0
	// FormatBunch groups records into bunches followed by a trailer.
	FormatBunch Format = 1
)

func (f Format) String() string {
	switch f {
	case FormatSimple:
		return "simple"
	case FormatBunch:
		return "bunch"
	default:
		return fmt.Sprintf("format(%d)", uint16(f))
	}
}

// ParseFormat parses "simple" or "bunch".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "simple":
		return FormatSimple, nil
	case "bunch", "":
		return FormatBunch, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

// Compression is the header compression code point.
type Compression uint16

const (
	CompressionNone   Compression = 0
	CompressionSnappy Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("compression(%d)", uint16(c))
	}
}

// ParseCompression parses "none" or "snappy".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Header is the container preamble. It is written once when the file is
// created and read once when an existing file is opened.
type Header struct {
	Identifier    [4]byte
	SubIdentifier [4]byte
	Version       Format
	Compression   Compression
	Timestamp     int64 // unix seconds
	Extension     []byte

	unused uint16
	extLen uint16
}

// VisitFields lists the fixed part of the header in on-disk order.
func (h *Header) VisitFields(v codec.Visitor) {
	v.Array(h.Identifier[:])
	v.Array(h.SubIdentifier[:])
	v.Uint16((*uint16)(&h.Version))
	v.Uint16((*uint16)(&h.Compression))
	v.Int64(&h.Timestamp)
	v.Uint16(&h.unused)
	v.Uint16(&h.extLen)
}

// Size returns the encoded size including the extension bytes.
func (h *Header) Size() int64 {
	return int64(headerFixedSize + len(h.Extension))
}

// Created returns the creation time.
func (h *Header) Created() time.Time {
	return time.Unix(h.Timestamp, 0)
}

func newHeader(o *options) Header {
	return Header{
		Identifier:    Identifier,
		SubIdentifier: o.subID,
		Version:       o.format,
		Compression:   o.compression,
		Timestamp:     o.now().Unix(),
		Extension:     o.ext,
	}
}

// writeHeader writes h at offset 0 in a single write.
func writeHeader(c *codec.Cursor, h *Header) error {
	if len(h.Extension) > math.MaxUint16 {
		return newError("write header").kind(ErrInvalidOption).
			causef("extension is %d bytes, limit %d", len(h.Extension), math.MaxUint16).err()
	}
	h.extLen = uint16(len(h.Extension))

	var buf bytes.Buffer
	buf.Grow(int(h.Size()))
	if err := codec.Encode(&buf, h); err != nil {
		return newError("write header").cause(err).err()
	}
	buf.Write(h.Extension)

	if err := c.SeekTo(0); err != nil {
		return newError("write header").offset(0).cause(err).err()
	}
	if _, err := c.Write(buf.Bytes()); err != nil {
		return newError("write header").offset(0).cause(err).err()
	}
	return nil
}

// readHeader decodes the header at offset 0 and leaves the cursor just past it.
func readHeader(c *codec.Cursor, fileSize int64) (Header, error) {
	var h Header
	if fileSize < headerFixedSize {
		return h, formatError("read header", 0, "file is %d bytes, shorter than the %d byte header", fileSize, headerFixedSize)
	}
	if err := c.SeekTo(0); err != nil {
		return h, newError("read header").offset(0).cause(err).err()
	}
	if err := codec.Decode(c, &h); err != nil {
		return h, newError("read header").offset(0).cause(err).err()
	}
	if h.Identifier != Identifier {
		return h, formatError("read header", 0, "bad identifier %q", h.Identifier[:])
	}
	switch h.Version {
	case FormatSimple:
		if h.Compression != CompressionNone {
			return h, formatError("read header", 0, "simple format does not support %s", h.Compression)
		}
	case FormatBunch:
		if h.Compression != CompressionNone && h.Compression != CompressionSnappy {
			return h, formatError("read header", 0, "unknown %s", h.Compression)
		}
	default:
		return h, formatError("read header", 0, "unknown version %d", uint16(h.Version))
	}
	if int64(headerFixedSize)+int64(h.extLen) > fileSize {
		return h, formatError("read header", headerFixedSize, "extension of %d bytes runs past end of file", h.extLen)
	}
	if h.extLen > 0 {
		ext, err := c.ReadN(int(h.extLen))
		if err != nil {
			return h, newError("read header").offset(headerFixedSize).cause(err).err()
		}
		h.Extension = ext
	}
	return h, nil
}
