// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/ratelimit"
)

type RateLimitConfig struct {
	Bucket     string
	Limit      ratelimit.Limit
	KeyFunc    func(*http.Request) string
	FailOpen   bool
	BypassFunc func(*http.Request) bool
}

// RateLimit counts requests per (bucket, key) against limiter. Callers only
// see the Limiter interface, so the in-process and Redis counters are
// interchangeable.
func RateLimit(
	limiter ratelimit.Limiter,
	cfg RateLimitConfig,
) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "global"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.BypassFunc != nil && cfg.BypassFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := ratelimit.BucketKey(cfg.Bucket, cfg.KeyFunc(r))

			res, err := limiter.Check(r.Context(), key, cfg.Limit)
			if err != nil {
				if cfg.FailOpen {
					slog.Warn("rate limiter error, failing open",
						"error", err,
						"bucket", cfg.Bucket,
					)
					next.ServeHTTP(w, r)
					return
				}
				core.ServiceUnavailable(w, "rate limiter unavailable")
				return
			}

			setRateLimitHeaders(w, res, cfg.Limit)

			if !res.Allowed {
				rateLimitRejections.With(prometheus.Labels{
					"bucket": cfg.Bucket,
				}).Inc()
				writeRateLimitExceeded(w, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP uses the last X-Forwarded-For hop, which is the one appended by
// our own proxy and cannot be forged by the client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

func KeyByIP(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return KeyByIP(r)
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res ratelimit.Result,
	limit ratelimit.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.MaxRequests))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))

	windowSecs := int(limit.Window.Seconds())
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.MaxRequests, windowSecs))
}

func writeRateLimitExceeded(w http.ResponseWriter, res ratelimit.Result) {
	retryAfter := res.RetryAfterSeconds
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	core.JSONError(w, core.NewAppError(
		nil,
		fmt.Sprintf("Too many requests. Retry after %d seconds.", retryAfter),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	).WithDetail("retryAfter", retryAfter))
}
