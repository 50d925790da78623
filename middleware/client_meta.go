package middleware

import (
	"net"
	"net/http"

	"github.com/authgate/authgate"
)

// ClientMeta copies the caller IP and User-Agent into the request context
// (authgate.WithClientIP, authgate.WithUserAgent). The IP comes from
// r.RemoteAddr; put a proxy-aware middleware such as chi's RealIP in front
// when running behind a trusted proxy.
func ClientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authgate.WithClientIP(r.Context(), ClientIP(r))
		if ua := r.UserAgent(); ua != "" {
			ctx = authgate.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
