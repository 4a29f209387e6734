package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewHTTPRateLimitPerIP limits requests per client IP. Visitors live in an LRU
// of cacheSize entries and are evicted after ttl of inactivity; the janitor
// stops with ctx.
func NewHTTPRateLimitPerIP(
	ctx context.Context,
	limit, burst, cacheSize int,
	ttl time.Duration,
) gin.HandlerFunc {

	visitors, _ := lru.New[string, *visitor](cacheSize)
	var mu sync.Mutex

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for _, key := range visitors.Keys() {
					if v, ok := visitors.Peek(key); ok && time.Since(v.last) > ttl {
						visitors.Remove(key)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(c *gin.Context) {
		host := c.ClientIP()

		mu.Lock()
		v, ok := visitors.Get(host)
		if !ok {
			v = &visitor{
				limiter: rate.NewLimiter(rate.Limit(limit), burst),
			}
			visitors.Add(host, v)
		}
		v.last = time.Now()
		mu.Unlock()

		if !v.limiter.Allow() {
			abort(c, http.StatusTooManyRequests, customErrors.KindRateLimited)
			return
		}
		c.Next()
	}
}
