package icf

import (
	"github.com/dd0wney/icf/pkg/codec"
	"github.com/dd0wney/icf/pkg/pools"
)

const (
	// trailerFixedSize covers sequence through flags.
	trailerFixedSize = 48
	// minTrailerSize is a trailer describing a single record.
	minTrailerSize = trailerFixedSize + codec.Uint64Size + codec.Uint64Size

	flagSnappy   uint32 = 1 << 0
	knownFlags          = flagSnappy
	noPrevious   uint64 = 0

	// maxDecodedBunch is the largest block snappy can describe.
	maxDecodedBunch uint64 = 1<<32 - 1
)

// trailer follows the data of every bunch. The u64 after the size list holds
// the trailer's own length, so the last trailer can be found from EOF.
type trailer struct {
	Sequence    uint32
	unused      uint32
	Timestamp   int64
	FileOffset  uint64 // offset of this trailer
	PrevTrailer uint64 // offset of the previous trailer, 0 for the first bunch
	DataOffset  uint64 // offset of this bunch's first data byte
	Count       uint32
	Flags       uint32
	Sizes       []uint64 // uncompressed record sizes
}

func (t *trailer) VisitFields(v codec.Visitor) {
	v.Uint32(&t.Sequence)
	v.Uint32(&t.unused)
	v.Int64(&t.Timestamp)
	v.Uint64(&t.FileOffset)
	v.Uint64(&t.PrevTrailer)
	v.Uint64(&t.DataOffset)
	v.Uint32(&t.Count)
	v.Uint32(&t.Flags)
}

func trailerSize(count int) int64 {
	return trailerFixedSize + int64(count)*codec.Uint64Size + codec.Uint64Size
}

// Len returns the encoded trailer length.
func (t *trailer) Len() int64 {
	return trailerSize(len(t.Sizes))
}

// End returns the offset just past the trailer.
func (t *trailer) End() int64 {
	return int64(t.FileOffset) + t.Len()
}

func (t *trailer) compressed() bool {
	return t.Flags&flagSnappy != 0
}

// dataLen is the number of bytes the bunch occupies on disk before its trailer.
func (t *trailer) dataLen() int64 {
	return int64(t.FileOffset - t.DataOffset)
}

func (t *trailer) payloadSize() uint64 {
	var sum uint64
	for _, s := range t.Sizes {
		sum += s
	}
	return sum
}

// encode appends the trailer to bb.
func (t *trailer) encode(bb *pools.BufferBuilder) error {
	t.Count = uint32(len(t.Sizes))
	if err := codec.Encode(bb, t); err != nil {
		return err
	}
	for _, s := range t.Sizes {
		bb.WriteUint64LE(s)
	}
	bb.WriteUint64LE(uint64(t.Len()))
	return nil
}

// readTrailerAt decodes and validates the trailer starting at off. limit is
// the highest offset the trailer may end at and dataStart the lowest offset a
// bunch may begin at. Every validation failure is an ErrFormat error.
func readTrailerAt(c *codec.Cursor, off, limit, dataStart int64) (*trailer, error) {
	const op = "read trailer"
	if off < dataStart || limit-off < minTrailerSize {
		return nil, formatError(op, off, "no room for a trailer before offset %d", limit)
	}
	if err := c.SeekTo(off); err != nil {
		return nil, newError(op).offset(off).cause(err).err()
	}

	t := &trailer{}
	d := codec.NewDecoder(c)
	t.VisitFields(d)
	if err := d.Err(); err != nil {
		return nil, newError(op).offset(off).cause(err).err()
	}

	switch {
	case t.FileOffset != uint64(off):
		return nil, formatError(op, off, "trailer records offset %d", t.FileOffset)
	case t.Count == 0:
		return nil, formatError(op, off, "empty bunch")
	case t.Flags&^knownFlags != 0:
		return nil, formatError(op, off, "unknown flags %#x", t.Flags)
	case t.DataOffset < uint64(dataStart) || t.DataOffset > t.FileOffset:
		return nil, formatError(op, off, "data offset %d outside [%d, %d]", t.DataOffset, dataStart, off)
	case t.PrevTrailer != noPrevious && (t.PrevTrailer < uint64(dataStart) || t.PrevTrailer >= t.DataOffset):
		return nil, formatError(op, off, "previous trailer offset %d not before data offset %d", t.PrevTrailer, t.DataOffset)
	case trailerSize(int(t.Count)) > limit-off:
		return nil, formatError(op, off, "trailer for %d records runs past offset %d", t.Count, limit)
	}

	// Sizes are summed as they are read so a corrupt entry cannot wrap the
	// total into a plausible value.
	budget := uint64(t.dataLen())
	if t.compressed() {
		budget = maxDecodedBunch
	}
	var sum uint64
	t.Sizes = make([]uint64, t.Count)
	for i := range t.Sizes {
		s := d.GetUint64()
		if d.Err() == nil && s > budget-sum {
			return nil, formatError(op, off, "record %d size %d overflows a bunch of at most %d bytes", i, s, budget)
		}
		sum += s
		t.Sizes[i] = s
	}
	distance := d.GetUint64()
	if err := d.Err(); err != nil {
		return nil, newError(op).offset(off).cause(err).err()
	}
	if distance != uint64(t.Len()) {
		return nil, formatError(op, off, "trailer length %d, trailing distance %d", t.Len(), distance)
	}
	if !t.compressed() && t.payloadSize() != uint64(t.dataLen()) {
		return nil, formatError(op, off, "record sizes sum to %d, bunch holds %d bytes", t.payloadSize(), t.dataLen())
	}
	return t, nil
}

// readTrailerEndingAt locates a trailer through the u64 distance stored in
// the eight bytes before end.
func readTrailerEndingAt(c *codec.Cursor, end, dataStart int64) (*trailer, error) {
	const op = "read trailer"
	if end-dataStart < minTrailerSize {
		return nil, formatError(op, end, "no room for a trailer")
	}
	if err := c.SeekTo(end - codec.Uint64Size); err != nil {
		return nil, newError(op).offset(end).cause(err).err()
	}
	d := codec.NewDecoder(c)
	distance := d.GetUint64()
	if err := d.Err(); err != nil {
		return nil, newError(op).offset(end).cause(err).err()
	}
	if !plausibleDistance(distance, end, dataStart) {
		return nil, formatError(op, end, "implausible trailer distance %d", distance)
	}
	t, err := readTrailerAt(c, end-int64(distance), end, dataStart)
	if err != nil {
		return nil, err
	}
	if t.End() != end {
		return nil, formatError(op, end, "trailer ends at %d", t.End())
	}
	return t, nil
}

// plausibleDistance is the cheap pre-check used while scanning for trailers.
func plausibleDistance(distance uint64, end, dataStart int64) bool {
	if distance < minTrailerSize || distance > uint64(end-dataStart) {
		return false
	}
	return (distance-trailerFixedSize)%codec.Uint64Size == 0
}
