package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/colmena/pkg/response"
)

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter 按调用者身份限流，只用于写接口
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (l *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.seen = now
	// 顺带清理长时间不活跃的
	if len(l.visitors) > 1024 {
		for k, o := range l.visitors {
			if now.Sub(o.seen) > l.idle {
				delete(l.visitors, k)
			}
		}
	}
	return v.limiter
}

// Middleware rps<=0 时不限流；需在 Identity 之后挂载
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rps <= 0 {
			c.Next()
			return
		}
		// 没带 cookie 的请求每次都会拿到新身份，按来源 IP 限流
		key := Identifier(c)
		if key == "" || AnonIssued(c) {
			key = "ip:" + c.ClientIP()
		}
		if !l.get(key, time.Now()).Allow() {
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
