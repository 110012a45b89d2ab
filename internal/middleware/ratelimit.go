package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/atinyakov/gophlogin/internal/models"
	"github.com/atinyakov/gophlogin/internal/rate"
	"go.uber.org/zap"
)

// OnLimited is called for every request rejected by RateLimit.
type OnLimited func(r *http.Request)

// RateLimit limits requests per client IP. Rejected requests get 429 with
// a Retry-After header and a JSON envelope. Limiter failures let the
// request through.
func RateLimit(l rate.Limiter, prefix string, logger *zap.Logger, onLimited OnLimited) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), prefix+clientIP(r))
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if onLimited != nil {
				onLimited(r)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(models.LoginResponse{
				StatusCode: http.StatusTooManyRequests,
				Message:    "too many requests",
			})
		})
	}
}

// clientIP keys on the socket peer. Forwarded headers are client-controlled
// and are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
