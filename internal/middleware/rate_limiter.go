package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/pkg/errors"
)

// RateLimiter is a fixed-window in-memory limiter keyed by user id and by
// client IP.
type RateLimiter struct {
	users *counterSet
	ips   *counterSet

	window time.Duration
	done   chan struct{}
	once   sync.Once
}

type counter struct {
	requests  int
	resetTime time.Time
}

type counterSet struct {
	mu       sync.Mutex
	max      int
	counters map[string]*counter
}

func newCounterSet(max int) *counterSet {
	return &counterSet{max: max, counters: make(map[string]*counter)}
}

// take records one request for key and reports whether it is allowed.
func (s *counterSet) take(key string, window time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.counters[key]
	if !exists || now.After(c.resetTime) {
		s.counters[key] = &counter{requests: 1, resetTime: now.Add(window)}
		return true
	}
	if c.requests >= s.max {
		return false
	}
	c.requests++
	return true
}

func (s *counterSet) remaining(key string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.counters[key]
	if !exists || now.After(c.resetTime) {
		return s.max
	}
	if left := s.max - c.requests; left > 0 {
		return left
	}
	return 0
}

func (s *counterSet) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.counters {
		if now.After(c.resetTime) {
			delete(s.counters, key)
		}
	}
}

func (s *counterSet) reset() {
	s.mu.Lock()
	s.counters = make(map[string]*counter)
	s.mu.Unlock()
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(userMaxRequests, ipMaxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		users:  newCounterSet(userMaxRequests),
		ips:    newCounterSet(ipMaxRequests),
		window: window,
		done:   make(chan struct{}),
	}

	go rl.cleanup(5 * time.Minute)

	return rl
}

func (rl *RateLimiter) CheckUserLimit(userID string) bool {
	return rl.users.take(userID, rl.window, time.Now())
}

func (rl *RateLimiter) CheckIPLimit(ip string) bool {
	return rl.ips.take(ip, rl.window, time.Now())
}

func (rl *RateLimiter) GetUserRemaining(userID string) int {
	return rl.users.remaining(userID, time.Now())
}

func (rl *RateLimiter) GetIPRemaining(ip string) int {
	return rl.ips.remaining(ip, time.Now())
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.users.evictExpired(now)
			rl.ips.evictExpired(now)
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.users.reset()
	rl.ips.reset()
}

// RateLimit rejects requests over the per-IP limit and, once a user is
// authenticated, over the per-user limit.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.CheckIPLimit(ip) {
			abortRateLimited(c, rl.GetIPRemaining(ip))
			return
		}

		if userID := CurrentUserID(c); userID != "" {
			if !rl.CheckUserLimit(userID) {
				abortRateLimited(c, rl.GetUserRemaining(userID))
				return
			}
			c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.GetUserRemaining(userID)))
		}

		c.Next()
	}
}

func abortRateLimited(c *gin.Context, remaining int) {
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
		"code":  errors.ErrCodeRateLimitExceeded,
	})
}
