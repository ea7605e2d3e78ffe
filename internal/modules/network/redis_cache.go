// README: Travel-time cache backed by Redis, shared between API workers.
package network

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"taxisim/internal/types"
)

// Travel times only change when the graph changes, so entries can live long;
// the prefix should identify the graph (e.g. a file fingerprint).
const redisCacheTTL = 7 * 24 * time.Hour

// RedisCache implements TravelTimeCache on a Redis instance. Errors are
// treated as cache misses; the network falls back to computing the path.
type RedisCache struct {
	redis  *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisCache creates a cache using keys "tt:<prefix>:<src>:<dst>".
func NewRedisCache(ctx context.Context, client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{redis: client, prefix: prefix, ctx: ctx}
}

func (c *RedisCache) Get(source, target types.NodeID) (int, bool) {
	val, err := c.redis.Get(c.ctx, c.key(source, target)).Result()
	if err != nil {
		return 0, false
	}
	tt, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return tt, true
}

func (c *RedisCache) Put(source, target types.NodeID, travelTime int) {
	_ = c.redis.Set(c.ctx, c.key(source, target), strconv.Itoa(travelTime), redisCacheTTL).Err()
}

func (c *RedisCache) key(source, target types.NodeID) string {
	return fmt.Sprintf("tt:%s:%d:%d", c.prefix, source, target)
}
