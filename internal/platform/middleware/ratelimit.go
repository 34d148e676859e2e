package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nurselink/nurselink/internal/platform/auth"
)

// RateLimitConfig sets the steady rate and the burst headroom of the token
// bucket limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig is generous enough for interactive clients while
// still damping scripted abuse.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

const (
	bucketIdleEvict = 10 * time.Minute
	sweepInterval   = time.Minute
)

// bucket is one caller's token balance. Tokens accrue continuously at the
// configured rate, capped at the burst size.
type bucket struct {
	mu       sync.Mutex
	balance  float64
	lastFill time.Time
	lastSeen time.Time
}

// take refills the balance and spends one token. When the bucket is empty it
// reports how long until the next token accrues, so both decisions happen
// under a single lock.
func (b *bucket) take(cfg RateLimitConfig) (ok bool, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.balance += now.Sub(b.lastFill).Seconds() * cfg.RequestsPerSecond
	if ceiling := float64(cfg.BurstSize); b.balance > ceiling {
		b.balance = ceiling
	}
	b.lastFill = now
	b.lastSeen = now

	if b.balance >= 1 {
		b.balance--
		return true, 0
	}
	if cfg.RequestsPerSecond <= 0 {
		return false, time.Second
	}
	wait := (1 - b.balance) / cfg.RequestsPerSecond
	return false, time.Duration(wait * float64(time.Second))
}

func (b *bucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastSeen)
}

// limiterStore keeps one bucket per caller key. Buckets idle for longer than
// bucketIdleEvict are swept on access so the map does not grow with every IP
// that ever hit the API.
type limiterStore struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		cfg:       cfg,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (s *limiterStore) get(key string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := time.Now(); now.Sub(s.lastSweep) > sweepInterval {
		for k, b := range s.buckets {
			if b.idleSince(now) > bucketIdleEvict {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		now := time.Now()
		b = &bucket{balance: float64(s.cfg.BurstSize), lastFill: now, lastSeen: now}
		s.buckets[key] = b
	}
	return b
}

// RateLimit returns middleware that throttles by caller. Authenticated
// requests spend from a per-user bucket, so clients behind a shared NAT do
// not starve each other; anonymous requests share a per-IP bucket.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != uuid.Nil {
				key = uid.String()
			}

			ok, retryAfter := store.get(key).take(cfg)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				h.Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)+1))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
