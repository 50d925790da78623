package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/rate"
)

const (
	defaultTOTPMaxAttempts = 5
	defaultTOTPCooldown    = time.Minute
)

var (
	ErrTOTPRateLimited = errors.New("totp rate limited")
	ErrTOTPUnavailable = errors.New("totp unavailable")
)

// TOTPLimiterConfig holds configurable thresholds for the TOTP rate limiter.
type TOTPLimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// TOTPLimiter caps failed second-factor codes per account.
type TOTPLimiter struct {
	counter     *rate.Limiter
	maxAttempts int64
	cooldown    time.Duration
}

// NewTOTPLimiter creates a TOTP failure limiter. Zero-value fields in cfg
// fall back to defaults (5 failures / 60s).
func NewTOTPLimiter(counter *rate.Limiter, cfg TOTPLimiterConfig) *TOTPLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultTOTPMaxAttempts
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultTOTPCooldown
	}
	return &TOTPLimiter{counter: counter, maxAttempts: int64(max), cooldown: cd}
}

func (l *TOTPLimiter) key(accountID string) string {
	return rate.Key("totp_fail", accountID)
}

// Check fails once the account has used up its failure budget.
func (l *TOTPLimiter) Check(ctx context.Context, accountID string) error {
	if l == nil {
		return nil
	}
	count, err := l.counter.Count(ctx, l.key(accountID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrTOTPRateLimited
	}
	return nil
}

// RecordFailure counts one bad code.
func (l *TOTPLimiter) RecordFailure(ctx context.Context, accountID string) error {
	if l == nil {
		return nil
	}
	count, err := l.counter.Hit(ctx, l.key(accountID), l.cooldown)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrTOTPRateLimited
	}
	return nil
}

// Reset clears the failure counter after a good code.
func (l *TOTPLimiter) Reset(ctx context.Context, accountID string) error {
	if l == nil {
		return nil
	}
	if err := l.counter.Reset(ctx, l.key(accountID)); err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	return nil
}
