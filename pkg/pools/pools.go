// Package pools provides buffer pooling for container writes.
//
// Flushing a bunch assembles payloads and trailer into one contiguous buffer
// so the append is a single write. Those buffers are large and short-lived,
// which is exactly what sync.Pool is for:
//
//   - BytePool: size-class based byte slice pooling, up to bunch size
//   - Uint64Pool: pooling for record size lists
//   - BufferBuilder: io.Writer over a pooled slice
package pools
