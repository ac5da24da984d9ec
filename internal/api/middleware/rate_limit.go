package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitPerUser allows perMinute requests per authenticated user (client
// IP when anonymous), refilled evenly over the minute.
func RateLimitPerUser(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex
	store := map[string]*visitor{}
	lastSweep := time.Now()
	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		key := c.GetString(CtxUserID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > time.Minute {
			for k, v := range store {
				if now.Sub(v.lastSeen) > 3*time.Minute {
					delete(store, k)
				}
			}
			lastSweep = now
		}
		v, ok := store[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, perMinute)}
			store[key] = v
		}
		v.lastSeen = now
		allowed := v.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			abort(c, http.StatusTooManyRequests, utils.CodeRateLimited, "too many requests")
			return
		}
		c.Next()
	}
}
