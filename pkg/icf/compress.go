package icf

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/dd0wney/icf/pkg/pools"
)

// compressBunch snappy-encodes the concatenated records into bb.
func compressBunch(bb *pools.BufferBuilder, records [][]byte, total int) {
	raw := pools.GetBytes(total)
	for _, r := range records {
		raw = append(raw, r...)
	}
	enc := pools.GetBytesSized(snappy.MaxEncodedLen(len(raw)))
	enc = snappy.Encode(enc, raw)
	bb.Write(enc)
	pools.PutBytes(enc)
	pools.PutBytes(raw)
}

// decompressBunch decodes a compressed bunch and checks it against the
// uncompressed size recorded in its trailer.
func decompressBunch(data []byte, want uint64) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed bunch length: %w", err)
	}
	if uint64(n) != want {
		return nil, fmt.Errorf("compressed bunch decodes to %d bytes, trailer says %d", n, want)
	}
	out, err := snappy.Decode(make([]byte, n), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress bunch: %w", err)
	}
	return out, nil
}
