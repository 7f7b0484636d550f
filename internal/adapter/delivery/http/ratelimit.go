package http

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
)

// limitRate throttles requests per client address. Limiter failures let the
// request through; a nil limiter disables throttling.
func limitRate(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "rate_limit_err", slog.AnyValue(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, tooManyRequestsResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when one is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
