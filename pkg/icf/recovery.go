package icf

import (
	"errors"
	"time"

	"github.com/dd0wney/icf/pkg/codec"
	"github.com/dd0wney/icf/pkg/logging"
)

// scanWindow is how much of the file the backward trailer scan reads at once.
const scanWindow = 64 << 10

// recover rebuilds the index by walking the trailer chain back from the last
// valid trailer. Record payloads are never read.
func (e *bunchEngine) recover(eof int64) error {
	start := time.Now()
	e.eof = eof
	if eof == e.st.dataStart {
		e.st.obs.RecordRecovery(FormatBunch.String(), 0, 0, time.Since(start))
		return nil
	}

	last, err := readTrailerEndingAt(e.st.cur, eof, e.st.dataStart)
	if err != nil {
		if !errors.Is(err, ErrFormat) {
			return err
		}
		e.st.log.Warn("no trailer at end of container, scanning backwards",
			logging.Path(e.st.path),
			logging.Error(err))
		if last, err = e.findLastTrailer(eof); err != nil {
			return err
		}
	}

	if last != nil {
		chain, err := e.walkChain(last)
		if err != nil {
			return err
		}
		prevEnd := e.st.dataStart
		for i := len(chain) - 1; i >= 0; i-- {
			t := chain[i]
			e.dangling += int64(t.DataOffset) - prevEnd
			e.commit(t, t.dataLen())
			prevEnd = t.End()
		}
		e.dangling += eof - prevEnd
	} else {
		e.dangling = eof - e.st.dataStart
	}
	// New bunches go after whatever is on disk, dangling bytes included.
	e.eof = eof

	if e.dangling > 0 {
		e.st.log.Warn("ignoring dangling bytes outside any complete bunch",
			logging.Path(e.st.path),
			logging.Bytes(e.dangling))
		e.st.obs.RecordDangling(e.dangling)
	}
	e.st.obs.RecordRecovery(FormatBunch.String(), uint64(len(e.refs)), len(e.bunches), time.Since(start))
	return nil
}

// walkChain follows prev_trailer_offset from last back to the first bunch and
// returns the trailers newest first.
func (e *bunchEngine) walkChain(last *trailer) ([]*trailer, error) {
	chain := []*trailer{last}
	cur := last
	for cur.PrevTrailer != noPrevious {
		prev, err := readTrailerAt(e.st.cur, int64(cur.PrevTrailer), int64(cur.DataOffset), e.st.dataStart)
		if err != nil {
			return nil, err
		}
		if prev.Sequence+1 != cur.Sequence {
			return nil, formatError("recover", int64(cur.FileOffset),
				"bunch sequence %d follows %d", cur.Sequence, prev.Sequence)
		}
		chain = append(chain, prev)
		cur = prev
	}
	if cur.Sequence != 0 {
		return nil, formatError("recover", int64(cur.FileOffset),
			"first bunch in chain has sequence %d", cur.Sequence)
	}
	return chain, nil
}

// findLastTrailer scans backwards from eof for the highest offset at which a
// valid trailer ends. It returns nil if there is none. Windows overlap by
// seven bytes so a distance field straddling a window edge is still seen.
func (e *bunchEngine) findLastTrailer(eof int64) (*trailer, error) {
	dataStart := e.st.dataStart
	buf := make([]byte, scanWindow)

	hi := eof
	for hi-dataStart >= minTrailerSize {
		lo := max(dataStart, hi-scanWindow)
		window := buf[:hi-lo]
		if err := e.st.cur.SeekTo(lo); err != nil {
			return nil, newError("recover").offset(lo).cause(err).err()
		}
		if err := e.st.cur.ReadFull(window); err != nil {
			return nil, newError("recover").offset(lo).cause(err).err()
		}

		for end := hi; end-lo >= codec.Uint64Size; end-- {
			if end == eof {
				continue
			}
			at := end - lo - codec.Uint64Size
			distance := codec.ByteOrder.Uint64(window[at : at+codec.Uint64Size])
			if !plausibleDistance(distance, end, dataStart) {
				continue
			}
			t, err := readTrailerEndingAt(e.st.cur, end, dataStart)
			if err == nil {
				e.st.log.Info("found last valid trailer",
					logging.Path(e.st.path),
					logging.Bunch(t.Sequence),
					logging.Offset(end))
				return t, nil
			}
			if !errors.Is(err, ErrFormat) {
				return nil, err
			}
		}

		if lo == dataStart {
			break
		}
		hi = lo + codec.Uint64Size - 1
	}
	return nil, nil
}
