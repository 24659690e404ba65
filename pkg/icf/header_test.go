package icf

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/icf/pkg/codec"
)

func TestHeader_RoundTrip(t *testing.T) {
	f, err := os.Create(tempPath(t, "header.icf"))
	require.NoError(t, err)
	defer f.Close()

	cur, err := codec.NewCursor(f)
	require.NoError(t, err)

	in := Header{
		Identifier:    Identifier,
		SubIdentifier: [4]byte{'T', 'E', 'S', 'T'},
		Version:       FormatBunch,
		Compression:   CompressionSnappy,
		Timestamp:     1_700_000_000,
		Extension:     []byte("calibration=3"),
	}
	require.NoError(t, writeHeader(cur, &in))
	assert.Equal(t, in.Size(), cur.Position())

	out, err := readHeader(cur, in.Size())
	require.NoError(t, err)
	assert.Equal(t, in.SubIdentifier, out.SubIdentifier)
	assert.Equal(t, in.Version, out.Version)
	assert.Equal(t, in.Compression, out.Compression)
	assert.Equal(t, in.Timestamp, out.Timestamp)
	assert.Equal(t, in.Extension, out.Extension)
	assert.Equal(t, in.Size(), cur.Position())
	assert.Equal(t, time.Unix(1_700_000_000, 0), out.Created())
}

func TestHeader_Layout(t *testing.T) {
	h := Header{Identifier: Identifier, Version: FormatSimple, Timestamp: 1}
	assert.Equal(t, headerFixedSize, codec.SizeOf(&h))

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, &h))
	b := buf.Bytes()
	assert.Equal(t, []byte("ICF\x00"), b[0:4])
	assert.Equal(t, []byte{0, 0}, b[8:10], "version")
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, b[12:20], "timestamp")
}

func TestReadHeader_Rejects(t *testing.T) {
	valid := func() []byte {
		var buf bytes.Buffer
		h := Header{Identifier: Identifier, Version: FormatBunch}
		require.NoError(t, codec.Encode(&buf, &h))
		return buf.Bytes()
	}

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:10] }},
		{"identifier", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"version", func(b []byte) []byte { b[8] = 7; return b }},
		{"compression", func(b []byte) []byte { b[10] = 9; return b }},
		{"simple compressed", func(b []byte) []byte { b[8] = 0; b[10] = 1; return b }},
		{"extension past eof", func(b []byte) []byte { b[22] = 100; return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.mutate(valid())
			cur, err := codec.NewCursor(bytes.NewReader(b))
			require.NoError(t, err)
			_, err = readHeader(cur, int64(len(b)))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestOpen_RejectsForeignFile(t *testing.T) {
	path := tempPath(t, "foreign.icf")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x42}, 64), 0644))

	_, err := Open(path, ModeAppend, testOptions()...)
	assert.ErrorIs(t, err, ErrFormat)

	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, path, ce.Path)
}
