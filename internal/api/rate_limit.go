package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
	"github.com/dunamismax/pixelflow-edge/internal/ratelimit"
)

// RateLimiter spends a per-subject transformation budget.
type RateLimiter interface {
	Take(ctx context.Context, subject string, cost int64) (ratelimit.Decision, error)
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldRateLimit(r) {
			next.ServeHTTP(w, r)
			return
		}

		subject := rateLimitSubject(r, s.rateLimitUserIDHeader) + ":" + routeLabel(r.URL.Path)

		cost := ratelimit.Cost(domain.ParseIntent(requestURL(r)))

		decision, err := s.rateLimiter.Take(r.Context(), subject, cost)
		if err != nil {
			s.logger.Warn().Err(err).Str("subject", subject).Msg("rate limiter check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		w.Header().Set("X-RateLimit-Cost", strconv.FormatInt(decision.Cost, 10))
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		s.metrics.rateLimitRejected.WithLabelValues(routeLabel(r.URL.Path)).Inc()
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "rate limit exceeded",
		})
	})
}

// Only image requests spend budget; health and metrics checks are free.
func shouldRateLimit(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/images/")
}

// rateLimitSubject uses the first hop of the configured header, falling back
// to the client address.
func rateLimitSubject(r *http.Request, header string) string {
	subject := strings.TrimSpace(r.Header.Get(header))
	if first, _, ok := strings.Cut(subject, ","); ok {
		subject = strings.TrimSpace(first)
	}
	if subject != "" {
		return subject
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return "anonymous"
}
