package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/yatube/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterSet holds one token bucket per client IP.
type limiterSet struct {
	mu      sync.Mutex
	buckets map[string]*rateLimiter
	limit   rate.Limit
	burst   int
}

func newLimiterSet(perMinute int) *limiterSet {
	perMinute = max(perMinute, 1)
	return &limiterSet{
		buckets: map[string]*rateLimiter{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, l := range s.buckets {
		if now.After(l.expires) {
			delete(s.buckets, k)
		}
	}
	l, ok := s.buckets[key]
	if !ok {
		l = &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = l
	}
	l.expires = now.Add(limiterIdle)
	return l.limiter.AllowN(now, 1)
}

// RateLimit applies an IP based token bucket to state-changing requests.
// HTML clients get a plain 429, API clients the JSON envelope.
func RateLimit(perMinute int) gin.HandlerFunc {
	set := newLimiterSet(perMinute)
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodGet || ctx.Request.Method == http.MethodHead {
			ctx.Next()
			return
		}
		if !set.allow(ctx.ClientIP(), time.Now()) {
			utils.Sugar.Warnf("rate limit exceeded ip=%s path=%s", ctx.ClientIP(), ctx.Request.URL.Path)
			if isAPI(ctx) {
				utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			} else {
				ctx.String(http.StatusTooManyRequests, "Too many requests")
			}
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func isAPI(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.Request.URL.Path, "/api/")
}
