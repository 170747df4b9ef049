// Package ratelimit provides a per-client token bucket middleware.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// maxClients bounds the bucket table; the least recently seen client is evicted first
const maxClients = 10000

// Limiter hands out one token bucket per client key
type Limiter struct {
	mu      sync.Mutex
	clients *lru.Cache
	rps     rate.Limit
	burst   int
	now     func() time.Time
}

// New creates a limiter allowing rps requests per second with the given burst per client
func New(rps float64, burst int) *Limiter {
	return newWithCapacity(rps, burst, maxClients)
}

func newWithCapacity(rps float64, burst, capacity int) *Limiter {
	// lru.New only fails for a non-positive size
	clients, _ := lru.New(capacity)
	return &Limiter{
		clients: clients,
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := l.clients.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.clients.Add(key, limiter)
	}
	return limiter.AllowN(l.now(), 1)
}

// Middleware rejects requests over the client's budget with 429
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Запрос был проигнорирован."})
			return
		}
		c.Next()
	}
}
