package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-redis/redis_rate/v10"
	"github.com/playvault/backend/internal/auth"
)

// Limiter is satisfied by *redis_rate.Limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

var _ Limiter = (*redis_rate.Limiter)(nil)

func LimitKeyUser(scope, userID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, userID)
}

// RateLimit caps authenticated requests per user per minute. A nil limiter
// disables limiting; limiter errors fail open.
func RateLimit(limiter Limiter, scope string, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserID(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), LimitKeyUser(scope, userID), redis_rate.PerMinute(perMinute))
			if err != nil {
				log.Printf("[ratelimit] %s: %v", scope, err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if res.Allowed == 0 {
				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
