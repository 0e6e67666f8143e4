// internal/httpapi/ratelimit.go
package httpapi

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

var errInvalidLimit = errors.New("invalid limit")

// Credential endpoints get a small per-IP budget so a password sprayer burns
// out quickly.
const (
	loginRatePerMinute = 30
	loginRateBurst     = 10
)

// rateLimit returns middleware enforcing perMinute/burst per client IP.
// Limiters live for the process lifetime; the key space is bounded by the
// client population.
func rateLimit(perMinute float64, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[ip]; ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
		limiters[ip] = l
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiterFor(ip).Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
