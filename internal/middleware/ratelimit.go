package middleware

import (
	"net/http"
	"sync"
	"time"

	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter 按用户限流，未登录请求按客户端 IP
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/6, 1),
		idle:     10 * time.Minute,
	}
}

func (r *RateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 定期清理长时间不活跃的用户
	if now.Sub(r.lastGC) > r.idle {
		for k, e := range r.limiters {
			if now.Sub(e.lastSeen) > r.idle {
				delete(r.limiters, k)
			}
		}
		r.lastGC = now
	}

	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if user := CurrentUser(c); user != nil {
			key = "user:" + utils.FormatID(user.ID)
		}
		if !r.allow(key, time.Now()) {
			utils.Abort(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
