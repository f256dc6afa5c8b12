package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"

	"collab-docs/utils"
)

// RateLimiter enforces a fixed-window request quota per principal on the
// mutation surface. Windows are the cache entries' TTLs; counters expire
// with their window.
type RateLimiter struct {
	cache *ttlcache.Cache[string, *atomic.Int64]
	limit int64
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *atomic.Int64](window),
		ttlcache.WithCapacity[string, *atomic.Int64](100_000),
		ttlcache.WithDisableTouchOnHit[string, *atomic.Int64](),
	)
	go cache.Start()
	return &RateLimiter{cache: cache, limit: int64(limit)}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CurrentPrincipal(c).ID
		if key == "" {
			key = c.ClientIP()
		}
		item, _ := rl.cache.GetOrSet(key, &atomic.Int64{})
		if item.Value().Add(1) > rl.limit {
			abortWithError(c, utils.TooManyRequests("rate limit exceeded, retry later"))
			return
		}
		c.Next()
	}
}
