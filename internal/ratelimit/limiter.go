// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const DefaultTableSize = 10_000

// Limiter keeps one bucket per client key. The table is bounded; the least
// recently seen clients are forgotten first.
type Limiter struct {
	clients *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

func New(perSecond float64, burst, size int) (*Limiter, error) {
	if perSecond <= 0 || burst <= 0 {
		return nil, fmt.Errorf("ratelimit: rate and burst must be positive")
	}
	if size <= 0 {
		size = DefaultTableSize
	}
	clients, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}
	return &Limiter{clients: clients, limit: rate.Limit(perSecond), burst: burst}, nil
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if lim, ok := l.clients.Get(key); ok {
		return lim
	}
	fresh := rate.NewLimiter(l.limit, l.burst)
	if prev, ok, _ := l.clients.PeekOrAdd(key, fresh); ok {
		return prev
	}
	return fresh
}

func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Middleware keys buckets by client IP and answers 429 with Retry-After.
func (l *Limiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(l.limit))))
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
