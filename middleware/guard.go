package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/authgate/authgate"
)

// AccessValidator is the part of authgate.Engine the guard needs.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*authgate.AccessResult, error)
}

type accessResultContextKey struct{}

// AccessResultFromContext returns the principal stored by Guard.
func AccessResultFromContext(ctx context.Context) (*authgate.AccessResult, bool) {
	res, ok := ctx.Value(accessResultContextKey{}).(*authgate.AccessResult)
	return res, ok && res != nil
}

// WithAccessResult stores res in ctx the way Guard does.
func WithAccessResult(ctx context.Context, res *authgate.AccessResult) context.Context {
	return context.WithValue(ctx, accessResultContextKey{}, res)
}

// Guard rejects requests without a valid bearer access token with 401.
func Guard(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			res, err := validator.ValidateAccess(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccessResult(r.Context(), res)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="authgate"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
