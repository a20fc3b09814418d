package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/noah-isme/jadwal-sholat/internal/service"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/response"
)

// Limiter names, also used as metric labels.
const (
	LimiterGeneral = "general"
	LimiterMosque  = "mosque"
)

// RateLimiterConfig holds per-IP budgets expressed per minute.
type RateLimiterConfig struct {
	GeneralPerMinute int
	MosquePerMinute  int
	CleanupInterval  time.Duration
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type bucketSet struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*ipLimiter
}

func newBucketSet(perMinute int) *bucketSet {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &bucketSet{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		entries: make(map[string]*ipLimiter),
	}
}

func (b *bucketSet) get(ip string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.entries[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

func (b *bucketSet) sweep(now time.Time, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ip, entry := range b.entries {
		if now.Sub(entry.lastAccess) > ttl {
			delete(b.entries, ip)
		}
	}
}

func (b *bucketSet) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// RateLimiter keeps token buckets per client IP. The mosque budget applies
// on top of the general one.
type RateLimiter struct {
	cfg     RateLimiterConfig
	metrics *service.MetricsService
	buckets map[string]*bucketSet
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter builds the limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig, metrics *service.MetricsService) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		cfg:     cfg,
		metrics: metrics,
		buckets: map[string]*bucketSet{
			LimiterGeneral: newBucketSet(cfg.GeneralPerMinute),
			LimiterMosque:  newBucketSet(cfg.MosquePerMinute),
		},
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// General limits every route.
func (rl *RateLimiter) General() gin.HandlerFunc {
	return rl.middleware(LimiterGeneral)
}

// Mosque limits the mosque search route.
func (rl *RateLimiter) Mosque() gin.HandlerFunc {
	return rl.middleware(LimiterMosque)
}

// Tracked reports how many client IPs hold a bucket for the named limiter.
func (rl *RateLimiter) Tracked(name string) int {
	if b, ok := rl.buckets[name]; ok {
		return b.size()
	}
	return 0
}

func (rl *RateLimiter) middleware(name string) gin.HandlerFunc {
	buckets := rl.buckets[name]
	return func(c *gin.Context) {
		limiter := buckets.get(c.ClientIP(), rl.now())
		if !limiter.AllowN(rl.now(), 1) {
			rl.metrics.RecordRateLimited(name)
			retryAfter := int(math.Ceil(1.0 / float64(buckets.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()
	for _, b := range rl.buckets {
		b.sweep(now, 2*rl.cfg.CleanupInterval)
	}
}
