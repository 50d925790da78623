package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/internal/rate"
)

// Limit is a per-client-IP budget: at most Requests per Window. A zero Limit
// disables the check.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Limits holds the budget of each rate-limited route. Every route counts in
// its own bucket.
type Limits struct {
	Register       Limit
	Login          Limit
	LoginMFA       Limit
	LoginGoogle    Limit
	Refresh        Limit
	PhoneRequest   Limit
	PhoneVerify    Limit
	ForgotPassword Limit
}

// DefaultLimits returns the production budgets.
func DefaultLimits() Limits {
	return Limits{
		Register:       Limit{Requests: 3, Window: time.Minute},
		Login:          Limit{Requests: 5, Window: time.Minute},
		LoginMFA:       Limit{Requests: 5, Window: time.Minute},
		LoginGoogle:    Limit{Requests: 10, Window: time.Minute},
		Refresh:        Limit{Requests: 5, Window: time.Minute},
		PhoneRequest:   Limit{Requests: 2, Window: time.Minute},
		PhoneVerify:    Limit{Requests: 5, Window: time.Minute},
		ForgotPassword: Limit{Requests: 2, Window: time.Hour},
	}
}

// limit counts the request against scope for the caller IP. It must run after
// middleware.ClientMeta. Limiter failures answer 503 rather than letting the
// request through unbounded.
func (s *Server) limit(scope string, l Limit) func(http.Handler) http.Handler {
	window := rate.Window{Limit: l.Requests, Period: l.Window}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := authgate.ClientIPFromContext(r.Context())
			if ip == "" {
				ip = "unknown"
			}

			d, err := s.limiter.Allow(r.Context(), rate.Key("rl:"+scope, ip), window)
			if err != nil {
				s.logger.Error("rate limiter unavailable",
					slog.String("scope", scope),
					slog.String("error", err.Error()),
				)
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
				return
			}
			if !d.Allowed {
				s.logger.Warn("rate limit exceeded",
					slog.String("scope", scope),
					slog.String("ip", ip),
					slog.Int64("count", d.Count),
				)
				writeRateLimited(w, d.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
