package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Idle buckets are dropped after limiterIdleTTL. A dropped bucket has long
// since refilled, so recreating it later is indistinguishable.
const (
	limiterIdleTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

type accountLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// AccountRateLimiter is a token bucket per account. It throttles request
// volume only; credit enforcement happens in the ledger.
type AccountRateLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*accountLimiter
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewAccountRateLimiter allows perMinute requests per account with the
// given burst.
func NewAccountRateLimiter(perMinute, burst int) *AccountRateLimiter {
	return &AccountRateLimiter{
		limiters:  make(map[string]*accountLimiter),
		rate:      rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *AccountRateLimiter) getLimiter(accountID string) *rate.Limiter {
	now := rl.now()

	rl.mu.RLock()
	entry, exists := rl.limiters[accountID]
	rl.mu.RUnlock()

	if exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, exists = rl.limiters[accountID]; exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweepLocked(now)
	}

	entry = &accountLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
	entry.lastSeen.Store(now.UnixNano())
	rl.limiters[accountID] = entry
	return entry.limiter
}

func (rl *AccountRateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	for key, entry := range rl.limiters {
		if entry.lastSeen.Load() < cutoff {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

// Len reports how many buckets are currently tracked.
func (rl *AccountRateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// Allow reports whether the account may make another request now.
func (rl *AccountRateLimiter) Allow(accountID string) bool {
	return rl.getLimiter(accountID).AllowN(rl.now(), 1)
}

// Limit must run after Auth; requests without an account fall back to the
// client IP.
func (rl *AccountRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := AccountID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !rl.Allow(key) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
