package pools

// Buffer size classes
const (
	FrameSize = 4 << 10  // Single records with their length prefix
	BlockSize = 64 << 10 // Recovery scan windows, small bunches
	BunchSize = 1 << 20  // A bunch at the default flush threshold
	MaxPool   = 4 << 20  // Don't pool buffers larger than this
)

// BytePool provides size-class based pooling for byte slices.
type BytePool struct {
	classes *classPool[byte]
}

// NewBytePool creates a new byte pool.
func NewBytePool() *BytePool {
	return &BytePool{classes: newClassPool[byte](FrameSize, BlockSize, BunchSize, MaxPool)}
}

// Get returns a byte slice with length 0 and at least the requested capacity.
func (p *BytePool) Get(size int) []byte {
	return p.classes.get(size)
}

// GetSized returns a byte slice with exactly the requested length.
func (p *BytePool) GetSized(size int) []byte {
	return p.Get(size)[:size]
}

// Put returns a byte slice to the pool. Slices smaller than FrameSize or
// larger than MaxPool are dropped.
func (p *BytePool) Put(b []byte) {
	p.classes.put(b)
}

var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a byte slice with exact length from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
