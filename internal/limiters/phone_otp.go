package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/rate"
)

var (
	ErrOTPIssueLimited = errors.New("otp issue limit reached")
	ErrOTPUnavailable  = errors.New("otp limiter unavailable")
)

// PhoneOTPLimiterConfig caps how many codes one phone number may receive.
type PhoneOTPLimiterConfig struct {
	KeyPrefix string
	MaxIssues int
	Window    time.Duration
}

// PhoneOTPLimiter counts code issuances per phone number.
type PhoneOTPLimiter struct {
	counter *rate.Limiter
	cfg     PhoneOTPLimiterConfig
}

// NewPhoneOTPLimiter defaults to 3 issuances per hour under "otp_limit".
func NewPhoneOTPLimiter(counter *rate.Limiter, cfg PhoneOTPLimiterConfig) *PhoneOTPLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "otp_limit"
	}
	if cfg.MaxIssues <= 0 {
		cfg.MaxIssues = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &PhoneOTPLimiter{counter: counter, cfg: cfg}
}

// Check fails with ErrOTPIssueLimited when the phone already received MaxIssues codes.
func (l *PhoneOTPLimiter) Check(ctx context.Context, phone string) error {
	count, err := l.counter.Count(ctx, rate.Key(l.cfg.KeyPrefix, phone))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	if count >= int64(l.cfg.MaxIssues) {
		return ErrOTPIssueLimited
	}
	return nil
}

// Record counts one issued code.
func (l *PhoneOTPLimiter) Record(ctx context.Context, phone string) error {
	if _, err := l.counter.Hit(ctx, rate.Key(l.cfg.KeyPrefix, phone), l.cfg.Window); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	return nil
}
