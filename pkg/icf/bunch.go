package icf

import (
	"time"

	"github.com/dd0wney/icf/pkg/logging"
	"github.com/dd0wney/icf/pkg/pools"
)

// recordRef locates a flushed record. For a compressed bunch offset is
// relative to the decoded bunch, otherwise it is a file offset.
type recordRef struct {
	offset int64
	size   uint64
	bunch  int
}

// bunchInfo is the in-memory summary of one trailer.
type bunchInfo struct {
	sequence   uint32
	dataOffset int64
	dataLen    int64
	trailerOff int64
	records    int
	rawSize    uint64
	compressed bool
}

// bunchEngine buffers records and writes them as bunches, each followed by
// a trailer linking back to the previous one.
type bunchEngine struct {
	st *store

	refs    []recordRef
	bunches []bunchInfo

	buffer   [][]byte
	buffered int64

	lastTrailer uint64
	sequence    uint32
	eof         int64
	dangling    int64

	cache *bunchCache
}

func newBunchEngine(st *store) *bunchEngine {
	return &bunchEngine{
		st:    st,
		eof:   st.dataStart,
		cache: newBunchCache(st.opts.cacheSize),
	}
}

func (e *bunchEngine) compress() bool {
	return e.st.opts.compression == CompressionSnappy
}

func (e *bunchEngine) write(rec []byte) error {
	e.buffer = append(e.buffer, append([]byte(nil), rec...))
	e.buffered += int64(len(rec))
	e.st.obs.RecordWrite(FormatBunch.String(), len(rec))

	if e.buffered > e.st.opts.threshold {
		return e.flush(TriggerThreshold)
	}
	return nil
}

func (e *bunchEngine) flush(trigger string) error {
	if len(e.buffer) == 0 {
		return nil
	}

	start := time.Now()
	records := len(e.buffer)
	written, err := e.writeBunch()
	e.st.obs.RecordFlush(trigger, records, written, time.Since(start), err)
	if err != nil {
		return err
	}

	e.st.log.Debug("bunch flushed",
		logging.Path(e.st.path),
		logging.Bunch(e.sequence-1),
		logging.Records(uint64(records)),
		logging.Bytes(written),
		logging.String("trigger", trigger),
		logging.Latency(time.Since(start)))
	return nil
}

// writeBunch appends the buffered records and their trailer in one write.
// The buffer is cleared once the write succeeds, even if the fsync after it
// fails.
func (e *bunchEngine) writeBunch() (int64, error) {
	dataOffset := e.eof
	bb := pools.NewBufferBuilder(int(e.buffered + trailerSize(len(e.buffer))))
	defer bb.Release()

	// The trailer is not retained past commit, so its size list can be pooled.
	sizes := pools.GetUint64s(len(e.buffer))
	defer func() { pools.PutUint64s(sizes) }()
	for _, r := range e.buffer {
		sizes = append(sizes, uint64(len(r)))
	}

	var flags uint32
	if e.compress() {
		compressBunch(bb, e.buffer, int(e.buffered))
		flags |= flagSnappy
	} else {
		for _, r := range e.buffer {
			bb.Write(r)
		}
	}
	dataLen := int64(bb.Len())

	t := &trailer{
		Sequence:    e.sequence,
		Timestamp:   e.st.opts.now().Unix(),
		FileOffset:  uint64(dataOffset + dataLen),
		PrevTrailer: e.lastTrailer,
		DataOffset:  uint64(dataOffset),
		Flags:       flags,
		Sizes:       sizes,
	}
	if err := t.encode(bb); err != nil {
		return 0, newError("flush").offset(dataOffset).cause(err).err()
	}

	if err := e.st.cur.SeekTo(dataOffset); err != nil {
		return 0, newError("flush").offset(dataOffset).cause(err).err()
	}
	if _, err := e.st.cur.Write(bb.Bytes()); err != nil {
		// A partial write leaves bytes that recovery will skip as dangling.
		if end, serr := e.st.cur.SeekEnd(); serr == nil {
			e.eof = end
		}
		return 0, newError("flush").offset(dataOffset).cause(err).err()
	}

	e.commit(t, dataLen)
	if err := e.st.sync(); err != nil {
		return int64(bb.Len()), newError("flush").offset(dataOffset).cause(err).err()
	}
	return int64(bb.Len()), nil
}

// commit adds a bunch described by t to the index.
func (e *bunchEngine) commit(t *trailer, dataLen int64) {
	b := bunchInfo{
		sequence:   t.Sequence,
		dataOffset: int64(t.DataOffset),
		dataLen:    dataLen,
		trailerOff: int64(t.FileOffset),
		records:    len(t.Sizes),
		rawSize:    t.payloadSize(),
		compressed: t.compressed(),
	}
	idx := len(e.bunches)
	e.bunches = append(e.bunches, b)

	off := b.dataOffset
	if b.compressed {
		off = 0
	}
	for _, s := range t.Sizes {
		e.refs = append(e.refs, recordRef{offset: off, size: s, bunch: idx})
		off += int64(s)
	}

	e.lastTrailer = t.FileOffset
	e.sequence = t.Sequence + 1
	e.eof = t.End()
	clear(e.buffer)
	e.buffer = e.buffer[:0]
	e.buffered = 0
}

func (e *bunchEngine) readAt(i uint64) ([]byte, error) {
	flushed := uint64(len(e.refs))
	if i >= flushed {
		if j := i - flushed; j < uint64(len(e.buffer)) {
			rec := append([]byte(nil), e.buffer[j]...)
			e.st.obs.RecordRead(FormatBunch.String(), len(rec), true)
			return rec, nil
		}
		return nil, newError("read").index(i).kind(ErrIndex).
			causef("container holds %d records", e.size()).err()
	}

	ref := e.refs[i]
	if e.bunches[ref.bunch].compressed {
		data, cached, err := e.decoded(i, ref.bunch)
		if err != nil {
			return nil, err
		}
		rec := append([]byte(nil), data[ref.offset:ref.offset+int64(ref.size)]...)
		e.st.obs.RecordRead(FormatBunch.String(), len(rec), cached)
		return rec, nil
	}

	if err := e.st.cur.SeekTo(ref.offset); err != nil {
		return nil, newError("read").index(i).offset(ref.offset).cause(err).err()
	}
	rec, err := e.st.cur.ReadN(int(ref.size))
	if err != nil {
		return nil, newError("read").index(i).offset(ref.offset).cause(err).err()
	}
	e.st.obs.RecordRead(FormatBunch.String(), len(rec), false)
	return rec, nil
}

// decoded returns the uncompressed bytes of a compressed bunch. i is only
// used to describe errors.
func (e *bunchEngine) decoded(i uint64, bunch int) ([]byte, bool, error) {
	if data, ok := e.cache.get(bunch); ok {
		return data, true, nil
	}
	b := e.bunches[bunch]
	if err := e.st.cur.SeekTo(b.dataOffset); err != nil {
		return nil, false, newError("read").index(i).offset(b.dataOffset).cause(err).err()
	}
	raw, err := e.st.cur.ReadN(int(b.dataLen))
	if err != nil {
		return nil, false, newError("read").index(i).offset(b.dataOffset).cause(err).err()
	}
	data, err := decompressBunch(raw, b.rawSize)
	if err != nil {
		return nil, false, newError("read").index(i).offset(b.dataOffset).kind(ErrFormat).cause(err).err()
	}
	e.cache.add(bunch, data)
	return data, false, nil
}

func (e *bunchEngine) size() uint64 {
	return uint64(len(e.refs) + len(e.buffer))
}

func (e *bunchEngine) stats(s *Stats) {
	s.Records = e.size()
	s.FlushedRecords = uint64(len(e.refs))
	s.BufferedRecords = len(e.buffer)
	s.BufferedBytes = e.buffered
	s.Bunches = len(e.bunches)
	s.DanglingBytes = e.dangling
	s.FileSize = e.eof
	s.CacheHits = e.cache.hits
	s.CacheMisses = e.cache.misses
}
