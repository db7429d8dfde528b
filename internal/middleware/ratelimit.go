package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// RateStore counts hits per key inside fixed windows.
type RateStore interface {
	// Increment records a hit for key and returns the count in the current window and when it resets.
	Increment(key string, window time.Duration) (int, time.Time)
}

// MemoryRateStore is a RateStore for single-instance deployments and tests.
type MemoryRateStore struct {
	mu        sync.Mutex
	now       func() time.Time
	counters  map[string]*rateCounter
	nextSweep time.Time
}

type rateCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an empty in-memory store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{
		now:      time.Now,
		counters: make(map[string]*rateCounter),
	}
}

// Increment implements RateStore.
func (s *MemoryRateStore) Increment(key string, window time.Duration) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.After(s.nextSweep) {
		for k, v := range s.counters {
			if now.After(v.windowEnd) {
				delete(s.counters, k)
			}
		}
		s.nextSweep = now.Add(window)
	}

	ct, ok := s.counters[key]
	if !ok || now.After(ct.windowEnd) {
		ct = &rateCounter{windowEnd: now.Add(window)}
		s.counters[key] = ct
	}
	ct.count++
	return ct.count, ct.windowEnd
}

// RateLimit limits requests per (clientIP, route) within a fixed window using an in-memory store.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return RateLimitWithStore(NewMemoryRateStore(), maxRequests, window)
}

// RateLimitWithStore is RateLimit backed by store.
func RateLimitWithStore(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		count, resetAt := store.Increment(c.ClientIP()+"|"+route, window)

		resetIn := time.Until(resetAt)
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, maxRequests-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			c.Header("Retry-After", strconv.Itoa(max(1, int(resetIn.Seconds()))))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
