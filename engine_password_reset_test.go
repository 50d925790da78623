package authgate

import (
	"context"
	"errors"
	"testing"

	"github.com/authgate/authgate/password"
)

func (h *testHarness) resetToken(t *testing.T, email string) string {
	t.Helper()
	if err := h.engine.ForgotPassword(context.Background(), email); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	return h.notifier.last(t, NotifyResetPassword).Token
}

func TestPasswordResetFlow(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	pair := h.register(t, "reset@example.com")

	token := h.resetToken(t, "Reset@Example.com")
	const newPassword = "n3w-Passw0rd"
	if err := h.engine.ResetPassword(ctx, token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := h.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("existing sessions must be revoked, got %v", err)
	}
	if _, err := h.engine.LoginWithEmail(ctx, "reset@example.com", strongPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := h.engine.LoginWithEmail(ctx, "reset@example.com", newPassword); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	if err := h.engine.ResetPassword(ctx, token, "An0ther-pass!"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected reused token rejected, got %v", err)
	}

	h.flushEvents()
	if got := len(h.events.ofType(EventPasswordReset)); got != 1 {
		t.Fatalf("expected one password.reset event, got %d", got)
	}
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	h.register(t, "known@example.com")

	if err := h.engine.ForgotPassword(ctx, "known@example.com"); err != nil {
		t.Fatalf("known: %v", err)
	}
	if err := h.engine.ForgotPassword(ctx, "unknown@example.com"); err != nil {
		t.Fatalf("unknown: %v", err)
	}
	h.repo.failAll = errors.New("db down")
	if err := h.engine.ForgotPassword(ctx, "known@example.com"); err != nil {
		t.Fatalf("backend failure must not surface: %v", err)
	}
	h.repo.failAll = nil

	if got := h.notifier.countKind(NotifyResetPassword); got != 1 {
		t.Fatalf("expected one reset notification, got %d", got)
	}
	if err := h.engine.ForgotPassword(ctx, "not an email"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResetPasswordRejectsOtherTokens(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	pair := h.register(t, "typ@example.com")

	for name, tok := range map[string]string{"access": pair.AccessToken, "refresh": pair.RefreshToken, "garbage": "a.b.c"} {
		if err := h.engine.ResetPassword(ctx, tok, "n3w-Passw0rd"); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestResetPasswordPolicy(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "pol@example.com")
	token := h.resetToken(t, "pol@example.com")

	err := h.engine.ResetPassword(context.Background(), token, "sh0rt!")
	if !errors.Is(err, password.ErrTooShort) || KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The reset minimum is shorter than the registration one.
	if err := h.engine.ResetPassword(context.Background(), token, "Sh0rt-pw"); err != nil {
		t.Fatalf("eight character password must be accepted on reset: %v", err)
	}
}

func TestResetPasswordDeletedAccount(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	id := h.accountID(t, h.register(t, "del@example.com"))
	token := h.resetToken(t, "del@example.com")

	if err := h.engine.SetAccountStatus(ctx, id, AccountDeleted); err != nil {
		t.Fatalf("SetAccountStatus failed: %v", err)
	}
	if err := h.engine.ResetPassword(ctx, token, "n3w-Passw0rd"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	before := h.notifier.countKind(NotifyResetPassword)
	if err := h.engine.ForgotPassword(ctx, "del@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if h.notifier.countKind(NotifyResetPassword) != before {
		t.Fatal("deleted accounts must not receive reset mail")
	}
}

func TestResetPasswordSuspendedAccountAllowed(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	id := h.accountID(t, h.register(t, "sus-reset@example.com"))
	if err := h.engine.SetAccountStatus(ctx, id, AccountSuspended); err != nil {
		t.Fatalf("SetAccountStatus failed: %v", err)
	}

	token := h.resetToken(t, "sus-reset@example.com")
	if err := h.engine.ResetPassword(ctx, token, "n3w-Passw0rd"); err != nil {
		t.Fatalf("suspended accounts may reset: %v", err)
	}
}
