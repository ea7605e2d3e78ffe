// README: Travel-time cache interface plus the default in-process map cache.
package network

import "taxisim/internal/types"

// TravelTimeCache memoizes shortest travel times between node pairs. A
// stored value of -1 marks an unreachable pair. Implementations may be
// shared across processes (see RedisCache); MapCache is the in-process
// default.
type TravelTimeCache interface {
	Get(source, target types.NodeID) (int, bool)
	Put(source, target types.NodeID, travelTime int)
}

type pairKey struct {
	source types.NodeID
	target types.NodeID
}

// MapCache is an unbounded in-process cache. The simulator is
// single-threaded, so no locking is needed.
type MapCache struct {
	entries map[pairKey]int
}

// NewMapCache creates an empty in-process travel-time cache.
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[pairKey]int)}
}

func (c *MapCache) Get(source, target types.NodeID) (int, bool) {
	tt, ok := c.entries[pairKey{source, target}]
	return tt, ok
}

func (c *MapCache) Put(source, target types.NodeID, travelTime int) {
	c.entries[pairKey{source, target}] = travelTime
}
