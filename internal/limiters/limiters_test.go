package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/authgate/authgate/internal/rate"
	"github.com/redis/go-redis/v9"
)

func newCounter(t *testing.T) (*rate.Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rate.New(rdb), mr
}

func TestTOTPLimiterBlocksAfterMaxFailures(t *testing.T) {
	counter, _ := newCounter(t)
	l := NewTOTPLimiter(counter, TOTPLimiterConfig{MaxAttempts: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx, "acct-1"); err != nil {
			t.Fatalf("failure #%d: %v", i+1, err)
		}
	}
	if err := l.Check(ctx, "acct-1"); err != nil {
		t.Fatalf("expected budget left: %v", err)
	}
	if err := l.RecordFailure(ctx, "acct-1"); !errors.Is(err, ErrTOTPRateLimited) {
		t.Fatalf("expected third failure to hit limit, got %v", err)
	}
	if err := l.Check(ctx, "acct-1"); !errors.Is(err, ErrTOTPRateLimited) {
		t.Fatalf("expected check to fail, got %v", err)
	}

	if err := l.Reset(ctx, "acct-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, "acct-1"); err != nil {
		t.Fatalf("expected reset to clear budget: %v", err)
	}
}

func TestTOTPLimiterNilSafe(t *testing.T) {
	var l *TOTPLimiter
	if err := l.Check(context.Background(), "a"); err != nil {
		t.Fatalf("nil limiter check: %v", err)
	}
	if err := l.RecordFailure(context.Background(), "a"); err != nil {
		t.Fatalf("nil limiter record: %v", err)
	}
}

func TestPhoneOTPLimiterThreePerHour(t *testing.T) {
	counter, mr := newCounter(t)
	l := NewPhoneOTPLimiter(counter, PhoneOTPLimiterConfig{})
	ctx := context.Background()
	phone := "+15551234567"

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, phone); err != nil {
			t.Fatalf("check #%d: %v", i+1, err)
		}
		if err := l.Record(ctx, phone); err != nil {
			t.Fatalf("record #%d: %v", i+1, err)
		}
	}
	if err := l.Check(ctx, phone); !errors.Is(err, ErrOTPIssueLimited) {
		t.Fatalf("expected fourth issuance to be limited, got %v", err)
	}
	if ttl := mr.TTL("otp_limit:" + phone); ttl != time.Hour {
		t.Fatalf("expected 1h window on otp_limit key, got %v", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	if err := l.Check(ctx, phone); err != nil {
		t.Fatalf("expected window to reset: %v", err)
	}
}
