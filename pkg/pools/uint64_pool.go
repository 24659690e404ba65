package pools

// Uint64Pool pools the record size lists written into bunch trailers.
type Uint64Pool struct {
	classes *classPool[uint64]
}

// NewUint64Pool creates a new uint64 slice pool with classes of 64, 1024 and
// 16384 elements.
func NewUint64Pool() *Uint64Pool {
	return &Uint64Pool{classes: newClassPool[uint64](64, 1024, 16384)}
}

// Get returns a uint64 slice with length 0 and at least the requested capacity.
func (p *Uint64Pool) Get(size int) []uint64 {
	return p.classes.get(size)
}

// Put returns a uint64 slice to the pool.
func (p *Uint64Pool) Put(s []uint64) {
	p.classes.put(s)
}

var defaultUint64Pool = NewUint64Pool()

// GetUint64s returns a uint64 slice from the default pool.
func GetUint64s(size int) []uint64 {
	return defaultUint64Pool.Get(size)
}

// PutUint64s returns a uint64 slice to the default pool.
func PutUint64s(s []uint64) {
	defaultUint64Pool.Put(s)
}
