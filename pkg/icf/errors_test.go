package icf

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder_FillsEveryField(t *testing.T) {
	err := newError("read").path("/data/a.icf").index(7).offset(4096).
		kind(ErrFormat).cause(io.ErrUnexpectedEOF).err()

	var ce *ContainerError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "read", ce.Op)
	assert.Equal(t, "/data/a.icf", ce.Path)
	assert.True(t, ce.HasIndex)
	assert.Equal(t, uint64(7), ce.Index)
	assert.Equal(t, int64(4096), ce.Offset)
	assert.Equal(t, "read /data/a.icf record 7 at offset 4096: malformed container: unexpected EOF", err.Error())

	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrIO)
}

func TestErrorBuilder_Defaults(t *testing.T) {
	err := newError("flush").causef("short write of %d bytes", 3).err()

	var ce *ContainerError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, int64(-1), ce.Offset)
	assert.False(t, ce.HasIndex)
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, "flush: container I/O failed: short write of 3 bytes", err.Error())
}

func TestWithPath_KeepsExistingPath(t *testing.T) {
	err := withPath(formatError("recover", 24, "bad trailer"), "/data/b.icf")
	var ce *ContainerError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "/data/b.icf", ce.Path)

	err = withPath(newError("read").path("/data/c.icf").err(), "/data/b.icf")
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "/data/c.icf", ce.Path)

	plain := errors.New("plain")
	assert.Same(t, plain, withPath(plain, "/data/b.icf"))
}
