package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"basegraph.app/sandbox/internal/http/dto"
)

// Rule is a budget of Max requests per Window, counted per client.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}

// RateLimit enforces rule per client IP. Limiter failures let the request
// through; a broken counter store must not take the API down with it.
func RateLimit(limiter Limiter, rule Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || rule.Max <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		d, err := limiter.Allow(ctx, rule.Name+":"+c.ClientIP(), rule)
		if err != nil {
			slog.WarnContext(ctx, "rate limiter unavailable, allowing request", "rule", rule.Name, "error", err)
			c.Next()
			return
		}

		resetIn := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
		if resetIn < 0 {
			resetIn = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetIn))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(max(resetIn, 1)))
			slog.InfoContext(ctx, "rate limit exceeded", "rule", rule.Name, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.Error("RATE_LIMITED", "Too many requests, please try again later."))
			return
		}

		c.Next()
	}
}

// RedisLimiter counts fixed windows in Redis so every server instance
// shares one budget per client.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "sandbox:ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(rule.Window)
	resetAt := windowStart.Add(rule.Window)
	counterKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.ExpireNX(ctx, counterKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("incrementing %s: %w", counterKey, err)
	}

	count := int(incr.Val())
	return Decision{
		Allowed:   count <= rule.Max,
		Limit:     rule.Max,
		Remaining: max(rule.Max-count, 0),
		ResetAt:   resetAt,
	}, nil
}

// LocalLimiter keeps one token bucket per key in memory. It is used when no
// Redis is configured and only holds for a single process.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		buckets: make(map[string]*localBucket),
		idleTTL: time.Hour,
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	now := l.now()
	interval := rule.Window / time.Duration(rule.Max)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(interval), rule.Max)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	missing := float64(rule.Max) - tokens
	return Decision{
		Allowed:   allowed,
		Limit:     rule.Max,
		Remaining: max(int(tokens), 0),
		ResetAt:   now.Add(time.Duration(missing * float64(interval))),
	}, nil
}

// sweep drops idle buckets at most once per idleTTL.
func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
