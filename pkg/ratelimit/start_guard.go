package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/simple-dashboard/pkg/impersonate/api"
)

// StartGuardConfig controls the per-admin limit on impersonation starts
type StartGuardConfig struct {
	Capacity   int     // Max burst of start attempts per admin
	RefillRate float64 // Start attempts allowed per second per admin
	BucketTTL  time.Duration
}

// DefaultStartGuardConfig allows 5 start attempts per admin per minute
func DefaultStartGuardConfig() StartGuardConfig {
	return StartGuardConfig{
		Capacity:   5,
		RefillRate: 5.0 / 60.0,
		BucketTTL:  time.Hour,
	}
}

// StartGuard rate-limits impersonation start attempts per admin. It must
// run after the admin middleware so the admin identity is the bucket key;
// unauthenticated requests fall through to the auth layer untouched.
func StartGuard(config StartGuardConfig) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(config.Capacity, config.RefillRate, config.BucketTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := api.AdminFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(admin.ID) {
				slog.Warn("Impersonation start rate limit exceeded", "adminId", admin.ID)
				http.Error(w, "too many impersonation attempts", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
