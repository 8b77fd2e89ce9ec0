package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/quickclicks/board/config"
	"github.com/quickclicks/board/utils"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	ipLimiters   = make(map[string]*ipLimiter)
	ipLimitersMu sync.Mutex
)

// GlobalRateLimit is a coarse per-IP token bucket guarding the whole API
// surface. The fine-grained posting limits live in AbuseGuard.
func GlobalRateLimit() gin.HandlerFunc {
	go cleanupIPLimiters()
	return func(ctx *gin.Context) {
		limiter := limiterForIP(ctx.ClientIP())
		if !limiter.Allow() {
			utils.FailThrottle(ctx, "too many requests")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func limiterForIP(ip string) *rate.Limiter {
	ipLimitersMu.Lock()
	defer ipLimitersMu.Unlock()

	entry, exists := ipLimiters[ip]
	if !exists {
		perMinute := config.Get().RateLimitPerMinute
		if perMinute <= 0 {
			perMinute = 300
		}
		entry = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
		ipLimiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func cleanupIPLimiters() {
	for range time.Tick(5 * time.Minute) {
		ipLimitersMu.Lock()
		for ip, entry := range ipLimiters {
			if time.Since(entry.lastSeen) > 10*time.Minute {
				delete(ipLimiters, ip)
			}
		}
		ipLimitersMu.Unlock()
	}
}
