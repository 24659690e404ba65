package icf

import (
	"github.com/golang/groupcache/lru"
)

// bunchCache keeps recently decoded compressed bunches, keyed by bunch index.
type bunchCache struct {
	lru    *lru.Cache
	hits   uint64
	misses uint64
}

func newBunchCache(size int) *bunchCache {
	return &bunchCache{lru: lru.New(size)}
}

func (c *bunchCache) get(bunch int) ([]byte, bool) {
	v, ok := c.lru.Get(bunch)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return v.([]byte), true
}

func (c *bunchCache) add(bunch int, data []byte) {
	c.lru.Add(bunch, data)
}
