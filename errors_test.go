package authgate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/authgate/authgate/internal/limiters"
	"github.com/authgate/authgate/internal/rate"
	"github.com/authgate/authgate/password"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrInvalidInput, KindValidation},
		{fmt.Errorf("%w: %w", ErrPasswordPolicy, password.ErrTooShort), KindValidation},
		{password.ErrMissingClass, KindValidation},
		{ErrAccountExists, KindConflict},
		{ErrTOTPAlreadyEnabled, KindConflict},
		{ErrInvalidCredentials, KindUnauthorized},
		{ErrRefreshInvalid, KindUnauthorized},
		{ErrMFAInvalid, KindUnauthorized},
		{ErrOTPInvalid, KindUnauthorized},
		{ErrTOTPNotConfigured, KindUnauthorized},
		{fmt.Errorf("%w: bad sig", ErrIdentityRejected), KindUnauthorized},
		{ErrAccountSuspended, KindForbidden},
		{ErrAccountDeleted, KindForbidden},
		{ErrOTPRateLimited, KindForbidden},
		{limiters.ErrOTPIssueLimited, KindForbidden},
		{ErrTOTPRateLimited, KindRateLimited},
		{rate.ErrRateLimited, KindRateLimited},
		{ErrTimeout, KindInternal},
		{ErrSessionStoreUnavailable, KindInternal},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded),
		fmt.Errorf("%w: dial tcp", ErrSessionStoreUnavailable),
		fmt.Errorf("%w: conn reset", ErrRepositoryUnavailable),
		rate.ErrRedisUnavailable,
	}
	for _, err := range retryable {
		if !IsRetryable(err) {
			t.Fatalf("expected %v retryable", err)
		}
	}
	for _, err := range []error{nil, ErrInvalidCredentials, ErrAccountExists, ErrOTPRateLimited} {
		if IsRetryable(err) {
			t.Fatalf("expected %v not retryable", err)
		}
	}
}

func TestErrorKindString(t *testing.T) {
	want := map[ErrorKind]string{
		KindInternal:     "internal",
		KindValidation:   "validation",
		KindConflict:     "conflict",
		KindUnauthorized: "unauthorized",
		KindForbidden:    "forbidden",
		KindRateLimited:  "rate_limited",
	}
	for k, s := range want {
		if k.String() != s {
			t.Fatalf("%d: got %q want %q", k, k.String(), s)
		}
	}
}
