package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authgate/authgate"
)

type stubValidator struct {
	valid map[string]*authgate.AccessResult
	calls int
}

func (s *stubValidator) ValidateAccess(_ context.Context, token string) (*authgate.AccessResult, error) {
	s.calls++
	if res, ok := s.valid[token]; ok {
		return res, nil
	}
	return nil, authgate.ErrTokenInvalid
}

func TestGuard(t *testing.T) {
	v := &stubValidator{valid: map[string]*authgate.AccessResult{
		"good": {AccountID: "acct-1", TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Minute)},
	}}

	var seen *authgate.AccessResult
	h := Guard(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccessResultFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer good", want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusNoContent},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer forged", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/auth/logout/all", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && (seen == nil || seen.AccountID != "acct-1") {
				t.Fatalf("access result not in context: %+v", seen)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("missing WWW-Authenticate header")
			}
		})
	}
}

func TestGuardNilValidator(t *testing.T) {
	h := Guard(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClientMeta(t *testing.T) {
	var ip string
	h := ClientMeta(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = authgate.ClientIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("User-Agent", "curl/8.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if ip != "203.0.113.7" {
		t.Fatalf("client ip = %q", ip)
	}

	req.RemoteAddr = "[2001:db8::1]:443"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if ip != "2001:db8::1" {
		t.Fatalf("ipv6 client ip = %q", ip)
	}
}
