package icf

import (
	"time"

	"github.com/dd0wney/icf/pkg/codec"
	"github.com/dd0wney/icf/pkg/logging"
	"github.com/dd0wney/icf/pkg/pools"
)

// simpleEngine writes every record straight to disk as [u64 len][payload].
type simpleEngine struct {
	st      *store
	offsets []int64 // frame start per logical index
	end     int64   // write pointer, just past the last complete frame
	torn    int64   // bytes past end left by an interrupted write
}

func newSimpleEngine(st *store) *simpleEngine {
	return &simpleEngine{st: st, end: st.dataStart}
}

func (e *simpleEngine) recover(eof int64) error {
	start := time.Now()
	pos := e.st.dataStart
	d := codec.NewDecoder(e.st.cur)

	for eof-pos >= codec.BlobPrefixSize {
		if err := e.st.cur.SeekTo(pos); err != nil {
			return newError("recover").offset(pos).cause(err).err()
		}
		length := d.GetUint64()
		if err := d.Err(); err != nil {
			return newError("recover").offset(pos).cause(err).err()
		}
		if length > uint64(eof-pos-codec.BlobPrefixSize) {
			break
		}
		e.offsets = append(e.offsets, pos)
		pos += codec.BlobPrefixSize + int64(length)
	}

	e.end = pos
	if pos < eof {
		e.torn = eof - pos
		e.st.log.Warn("ignoring torn record at end of container",
			logging.Path(e.st.path),
			logging.Offset(pos),
			logging.Bytes(e.torn))
		e.st.obs.RecordDangling(e.torn)
	}
	e.st.obs.RecordRecovery(FormatSimple.String(), uint64(len(e.offsets)), 0, time.Since(start))
	return nil
}

func (e *simpleEngine) write(rec []byte) error {
	if e.torn > 0 {
		if err := e.st.truncate(e.end); err != nil {
			return newError("write").offset(e.end).cause(err).err()
		}
		e.torn = 0
	}

	bb := pools.NewBufferBuilder(codec.BlobPrefixSize + len(rec))
	defer bb.Release()
	bb.WriteUint64LE(uint64(len(rec)))
	bb.Write(rec)

	if err := e.st.cur.SeekTo(e.end); err != nil {
		return newError("write").offset(e.end).cause(err).err()
	}
	if _, err := e.st.cur.Write(bb.Bytes()); err != nil {
		return newError("write").offset(e.end).cause(err).err()
	}

	e.offsets = append(e.offsets, e.end)
	e.end += int64(bb.Len())
	e.st.obs.RecordWrite(FormatSimple.String(), len(rec))
	return nil
}

func (e *simpleEngine) flush(trigger string) error {
	start := time.Now()
	err := e.st.sync()
	if err != nil {
		err = newError("flush").cause(err).err()
	}
	e.st.obs.RecordFlush(trigger, 0, 0, time.Since(start), err)
	return err
}

func (e *simpleEngine) readAt(i uint64) ([]byte, error) {
	if i >= uint64(len(e.offsets)) {
		return nil, newError("read").index(i).kind(ErrIndex).
			causef("container holds %d records", len(e.offsets)).err()
	}
	off := e.offsets[i]
	if err := e.st.cur.SeekTo(off); err != nil {
		return nil, newError("read").index(i).offset(off).cause(err).err()
	}
	d := codec.NewDecoder(e.st.cur)
	rec := d.Blob(e.end - off - codec.BlobPrefixSize)
	if err := d.Err(); err != nil {
		return nil, newError("read").index(i).offset(off).cause(err).err()
	}
	e.st.obs.RecordRead(FormatSimple.String(), len(rec), false)
	return rec, nil
}

func (e *simpleEngine) size() uint64 {
	return uint64(len(e.offsets))
}

func (e *simpleEngine) stats(s *Stats) {
	s.Records = uint64(len(e.offsets))
	s.FlushedRecords = s.Records
	s.DanglingBytes = e.torn
	s.FileSize = e.end + e.torn
}
