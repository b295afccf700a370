package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/response"
	"github.com/suteetoe/taskhub/prometheus"
)

const MsgTooManyRequests = "Too many requests, try again later"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	extractIP echo.IPExtractor
}

// NewRateLimiter allows perMinute requests per client with bursts up to burst.
// Buckets idle for more than idle are forgotten.
func NewRateLimiter(perMinute float64, burst int, idle time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		idle:      idle,
		now:       time.Now,
		extractIP: echo.ExtractIPDirect(),
	}
}

// WithIPExtractor sets how the client address is read from a request.
// The default uses the connection's remote address and ignores forwarding headers.
func (rl *RateLimiter) WithIPExtractor(x echo.IPExtractor) *RateLimiter {
	rl.extractIP = x
	return rl
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.reserve(key) == 0
}

// reserve takes a token for key. It returns zero when one was available,
// otherwise how long until the next token, leaving the bucket untouched.
func (rl *RateLimiter) reserve(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		// a zero rate never refills
		return time.Minute
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	return delay
}

// Sweep drops buckets that have been idle longer than the idle window
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	for k, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, k)
		}
	}
}

// Run sweeps idle buckets every interval until ctx is done
func (rl *RateLimiter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Len is the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rl.extractIP(c.Request())
			if key == "" {
				key = "unknown"
			}
			if wait := rl.reserve(key); wait > 0 {
				logger.FromContext(c).Warn("Rate limit exceeded",
					zap.String("client", key),
					zap.String("path", c.Request().URL.Path),
					zap.Duration("retry_after", wait))
				prometheus.RecordAuthError("rate_limited")
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				return response.Error(c, http.StatusTooManyRequests, MsgTooManyRequests)
			}
			return next(c)
		}
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
