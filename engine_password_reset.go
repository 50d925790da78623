package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authgate/authgate/jwt"
)

// ForgotPassword describes the forgotpassword operation and its observable behavior.
//
// ForgotPassword returns nil for every well-formed email whether or not an
// account exists, and only enqueues a reset-password job (carrying a signed
// password-reset token) when one does. Lookup failures are logged, not
// returned, so the response never depends on account existence.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	e.metricInc(MetricPasswordResetRequest)

	acct, err := e.repo.FindByBinding(ctx, ProviderEmail, normalized)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			e.logger.Error("password reset lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	if acct.Status == AccountDeleted {
		return nil
	}

	token, _, err := e.jwtManager.Issue(jwt.TypePasswordReset, acct.ID, "")
	if err != nil {
		e.logger.Error("password reset token issue failed",
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	e.enqueue(ctx, Notification{
		Kind:      NotifyResetPassword,
		To:        normalized,
		AccountID: acct.ID,
		Token:     token,
	})
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword verifies a password-reset token, enforces the reset policy,
// stores the new hash and revokes every session of the account. Each token
// works once. Expired, reused or mis-typed tokens and tokens of deleted
// accounts fail with ErrTokenInvalid. Suspended accounts may reset.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	claims, err := e.jwtManager.Parse(token, jwt.TypePasswordReset)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		return ErrTokenInvalid
	}
	if err := e.resetPolicy.Check(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
	}

	acct, err := e.findAccount(ctx, claims.Subject, ErrTokenInvalid)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		return err
	}
	if acct.Status == AccountDeleted {
		e.metricInc(MetricPasswordResetFailure)
		return ErrTokenInvalid
	}

	ttl := time.Until(claims.ExpiresAt.Time) + e.config.JWT.Leeway
	first, err := e.resetTokens.MarkUsed(ctx, claims.ID, ttl)
	if err != nil {
		return backendError(ctx, ErrSessionStoreUnavailable, err)
	}
	if !first {
		e.metricInc(MetricPasswordResetFailure)
		return ErrTokenInvalid
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
	}
	if err := e.repo.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		return backendError(ctx, ErrRepositoryUnavailable, err)
	}
	if err := e.revokeAll(ctx, acct.ID); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.publish(ctx, Event{
		Type:      EventPasswordReset,
		AccountID: acct.ID,
		Email:     acct.Email,
		Success:   true,
	})
	return nil
}
