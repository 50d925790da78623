package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func (h *testHarness) requestOTP(t *testing.T, phone string) string {
	t.Helper()
	if err := h.engine.RequestPhoneOTP(context.Background(), phone); err != nil {
		t.Fatalf("RequestPhoneOTP failed: %v", err)
	}
	return h.notifier.last(t, NotifySendOTP).Code
}

func TestPhoneOTPLoginProvisionsOnce(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	code := h.requestOTP(t, "+1 (555) 010-2000")
	note := h.notifier.last(t, NotifySendOTP)
	if note.To != "+15550102000" || len(code) != 6 {
		t.Fatalf("unexpected otp notification %+v", note)
	}
	if got := h.mr.TTL("otp:+15550102000"); got <= 0 || got > 300*time.Second {
		t.Fatalf("unexpected otp ttl %v", got)
	}
	stored, err := h.mr.Get("otp:+15550102000")
	if err != nil || stored == code {
		t.Fatalf("otp must be stored hashed, got %q %v", stored, err)
	}

	pair, err := h.engine.VerifyPhoneOTP(ctx, "+15550102000", code)
	if err != nil {
		t.Fatalf("VerifyPhoneOTP failed: %v", err)
	}
	first := h.accountID(t, pair)
	if acct := h.repo.get(t, first); acct.Phone != "+15550102000" || acct.PasswordHash != "" {
		t.Fatalf("unexpected provisioned account %+v", acct)
	}

	if _, err := h.engine.VerifyPhoneOTP(ctx, "+15550102000", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected consumed code rejected, got %v", err)
	}

	code = h.requestOTP(t, "+15550102000")
	pair, err = h.engine.VerifyPhoneOTP(ctx, "+15550102000", code)
	if err != nil {
		t.Fatalf("second VerifyPhoneOTP failed: %v", err)
	}
	if got := h.accountID(t, pair); got != first {
		t.Fatalf("expected same account %s, got %s", first, got)
	}
	if h.repo.count() != 1 {
		t.Fatalf("expected one account, got %d", h.repo.count())
	}
}

func TestPhoneOTPWrongCodeBurnsCode(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	code := h.requestOTP(t, "+15550103000")

	wrong := "000000"
	if wrong == code {
		wrong = "999999"
	}
	if _, err := h.engine.VerifyPhoneOTP(ctx, "+15550103000", wrong); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	if _, err := h.engine.VerifyPhoneOTP(ctx, "+15550103000", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected burned code rejected, got %v", err)
	}
}

func TestPhoneOTPMalformedCodeKeepsCode(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	code := h.requestOTP(t, "+15550104000")

	for _, bad := range []string{"12345", "1234567", "12a456", ""} {
		if _, err := h.engine.VerifyPhoneOTP(ctx, "+15550104000", bad); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("%q: expected ErrOTPInvalid, got %v", bad, err)
		}
	}
	if _, err := h.engine.VerifyPhoneOTP(ctx, "+15550104000", code); err != nil {
		t.Fatalf("expected code still redeemable, got %v", err)
	}
}

func TestPhoneOTPExpires(t *testing.T) {
	h := newTestHarness(t)
	code := h.requestOTP(t, "+15550105000")

	h.mr.FastForward(301 * time.Second)
	if _, err := h.engine.VerifyPhoneOTP(context.Background(), "+15550105000", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected expired code rejected, got %v", err)
	}
}

func TestPhoneOTPNewCodeReplacesOld(t *testing.T) {
	h := newTestHarness(t)
	old := h.requestOTP(t, "+15550106000")
	fresh := h.requestOTP(t, "+15550106000")
	if old == fresh {
		t.Skip("random codes collided")
	}
	if _, err := h.engine.VerifyPhoneOTP(context.Background(), "+15550106000", old); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected replaced code rejected, got %v", err)
	}
}

func TestPhoneOTPIssueRateLimit(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.requestOTP(t, "+15550107000")
	}
	err := h.engine.RequestPhoneOTP(ctx, "+15550107000")
	if !errors.Is(err, ErrOTPRateLimited) || KindOf(err) != KindForbidden {
		t.Fatalf("expected forbidden ErrOTPRateLimited, got %v", err)
	}
	if got := h.notifier.countKind(NotifySendOTP); got != 3 {
		t.Fatalf("expected 3 codes sent, got %d", got)
	}

	// Other phones are unaffected.
	h.requestOTP(t, "+15550108000")

	h.mr.FastForward(time.Hour + time.Second)
	h.requestOTP(t, "+15550107000")
}

func TestPhoneOTPInvalidPhone(t *testing.T) {
	h := newTestHarness(t)
	for _, phone := range []string{"5550101", "+0123456789", "+1555", "phone"} {
		if err := h.engine.RequestPhoneOTP(context.Background(), phone); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", phone, err)
		}
	}
}

func TestPhoneOTPSuspendedAccount(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	pair, err := h.engine.VerifyPhoneOTP(ctx, "+15550109000", h.requestOTP(t, "+15550109000"))
	if err != nil {
		t.Fatalf("VerifyPhoneOTP failed: %v", err)
	}
	if err := h.engine.SetAccountStatus(ctx, h.accountID(t, pair), AccountSuspended); err != nil {
		t.Fatalf("SetAccountStatus failed: %v", err)
	}

	_, err = h.engine.VerifyPhoneOTP(ctx, "+15550109000", h.requestOTP(t, "+15550109000"))
	if !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}
