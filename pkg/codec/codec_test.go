package codec

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	tag   [4]byte
	small uint16
	mid   uint32
	big   uint64
	stamp int64
}

func (s *sample) VisitFields(v Visitor) {
	v.Array(s.tag[:])
	v.Uint16(&s.small)
	v.Uint32(&s.mid)
	v.Uint64(&s.big)
	v.Int64(&s.stamp)
}

func TestEncodeDecode_Fielder(t *testing.T) {
	in := sample{tag: [4]byte{'I', 'C', 'F', 0}, small: 0xBEEF, mid: 7, big: 1 << 40, stamp: -5}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &in))
	assert.Equal(t, SizeOf(&in), buf.Len())
	assert.Equal(t, 26, buf.Len())

	var out sample
	require.NoError(t, Decode(&buf, &out))
	assert.Equal(t, in, out)
}

func TestEncoder_LittleEndianLayout(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.PutUint64(0x0102030405060708)
	v := uint16(0x0A0B)
	e.Uint16(&v)
	require.NoError(t, e.Err())

	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1, 0x0B, 0x0A}, buf.Bytes())
	assert.Equal(t, int64(10), e.Written())
}

func TestDecoder_ShortReadIsUnexpectedEOF(t *testing.T) {
	d := NewDecoder(bytes.NewReader([]byte{1, 2, 3}))
	_ = d.GetUint64()
	assert.ErrorIs(t, d.Err(), io.ErrUnexpectedEOF)

	// Errors are sticky.
	var v uint16
	d.Uint16(&v)
	assert.Zero(t, v)
	assert.ErrorIs(t, d.Err(), io.ErrUnexpectedEOF)
}

func TestDecoder_EmptyStreamIsUnexpectedEOF(t *testing.T) {
	d := NewDecoder(bytes.NewReader(nil))
	var v uint32
	d.Uint32(&v)
	assert.ErrorIs(t, d.Err(), io.ErrUnexpectedEOF)
}

func TestBlob_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.Blob([]byte("payload"))
	e.Blob(nil)
	require.NoError(t, e.Err())
	assert.Equal(t, 2*BlobPrefixSize+7, buf.Len())

	d := NewDecoder(&buf)
	assert.Equal(t, []byte("payload"), d.Blob(-1))
	assert.Empty(t, d.Blob(-1))
	require.NoError(t, d.Err())
}

func TestBlob_LimitRejectsOversizedPrefix(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.PutUint64(1 << 50)

	d := NewDecoder(&buf)
	assert.Nil(t, d.Blob(1024))

	var lengthErr *LengthError
	require.True(t, errors.As(d.Err(), &lengthErr))
	assert.Equal(t, uint64(1<<50), lengthErr.Length)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestEncoder_StickyWriteError(t *testing.T) {
	e := NewEncoder(failingWriter{})
	e.PutUint64(1)
	e.Blob([]byte("x"))
	assert.ErrorIs(t, e.Err(), os.ErrClosed)
	assert.Zero(t, e.Written())
}

func TestCursor_TracksPosition(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "cursor.bin"))
	require.NoError(t, err)
	defer f.Close()

	c, err := NewCursor(f)
	require.NoError(t, err)
	assert.Zero(t, c.Position())

	_, err = c.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.Position())

	require.NoError(t, c.SeekTo(6))
	got, err := c.ReadN(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)
	assert.Equal(t, int64(11), c.Position())

	end, err := c.SeekEnd()
	require.NoError(t, err)
	assert.Equal(t, int64(11), end)

	require.NoError(t, c.SeekTo(8))
	err = c.ReadFull(make([]byte, 10))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCursor_DecodeThroughCursor(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "fields.bin"))
	require.NoError(t, err)
	defer f.Close()

	c, err := NewCursor(f)
	require.NoError(t, err)

	in := sample{tag: [4]byte{'A', 'B', 'C', 'D'}, big: 42}
	require.NoError(t, Encode(c, &in))
	require.NoError(t, c.SeekTo(0))

	var out sample
	require.NoError(t, Decode(c, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, int64(SizeOf(&in)), c.Position())
}

func TestCursor_ReadOnlyStreamRejectsWrite(t *testing.T) {
	c, err := NewCursor(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)

	_, err = c.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotWritable)
}

func TestCursor_NotAnIOSeeker(t *testing.T) {
	c, err := NewCursor(bytes.NewReader(nil))
	require.NoError(t, err)

	_, ok := any(c).(io.Seeker)
	assert.False(t, ok, "SeekTo takes an absolute offset and must not pose as io.Seeker")
}
