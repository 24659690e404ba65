package icf

import (
	"io"

	"github.com/dd0wney/icf/pkg/codec"
	"github.com/dd0wney/icf/pkg/logging"
)

// engine is one on-disk layout. The container owns the file and hands each
// engine the same store.
type engine interface {
	// recover rebuilds the index from the bytes between the header and end.
	recover(end int64) error
	write(rec []byte) error
	flush(trigger string) error
	readAt(i uint64) ([]byte, error)
	size() uint64
	stats(s *Stats)
}

// handle is the open file. *os.File satisfies it, as does a read-only
// memory mapping wrapped in a section reader.
type handle interface {
	io.ReadSeeker
	io.Closer
}

type syncer interface {
	Sync() error
}

type truncater interface {
	Truncate(size int64) error
}

// store is the state shared by the container and its engine.
type store struct {
	file      handle
	cur       *codec.Cursor
	path      string
	dataStart int64 // first byte after the header
	opts      *options
	log       logging.Logger
	obs       Observer
}

func (s *store) sync() error {
	if !s.opts.sync {
		return nil
	}
	f, ok := s.file.(syncer)
	if !ok {
		return nil
	}
	return f.Sync()
}

func (s *store) truncate(size int64) error {
	f, ok := s.file.(truncater)
	if !ok {
		return codec.ErrNotWritable
	}
	return f.Truncate(size)
}

func newEngine(f Format, st *store) engine {
	if f == FormatSimple {
		return newSimpleEngine(st)
	}
	return newBunchEngine(st)
}
