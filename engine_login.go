package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authgate/authgate/internal/limiters"
	"github.com/authgate/authgate/jwt"
)

// LoginWithEmail describes the loginwithemail operation and its observable behavior.
//
// LoginWithEmail verifies email and password. Unknown accounts still run a
// full Argon2id verification against a dummy hash, and both cases fail with
// the same ErrInvalidCredentials. Inactive accounts fail with a Forbidden
// class error after the password check. Accounts with TOTP enabled get an
// MFA pending token instead of a session; CompleteMFALogin finishes them.
func (e *Engine) LoginWithEmail(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricLoginLatency, start)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	normalized, err := normalizeEmail(email)
	if err != nil {
		e.passwordHash.VerifyDummy(plaintext)
		return nil, e.loginFailed(ctx, email, "", "malformed_identifier")
	}

	acct, err := e.repo.FindByBinding(ctx, ProviderEmail, normalized)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, backendError(ctx, ErrRepositoryUnavailable, err)
		}
		e.passwordHash.VerifyDummy(plaintext)
		return nil, e.loginFailed(ctx, normalized, "", "invalid_credentials")
	}

	if acct.PasswordHash == "" {
		e.passwordHash.VerifyDummy(plaintext)
		return nil, e.loginFailed(ctx, normalized, acct.ID, "invalid_credentials")
	}
	ok, err := e.passwordHash.Verify(plaintext, acct.PasswordHash)
	if err != nil {
		e.logger.Error("stored password hash unreadable",
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
	}
	if !ok {
		return nil, e.loginFailed(ctx, normalized, acct.ID, "invalid_credentials")
	}

	if err := statusError(acct.Status); err != nil {
		e.metricInc(MetricLoginFailure)
		e.publish(ctx, Event{
			Type:      EventLoginFailed,
			AccountID: acct.ID,
			Email:     normalized,
			Reason:    "account_" + acct.Status.String(),
		})
		return nil, err
	}

	e.upgradePasswordHash(ctx, acct, plaintext)

	if acct.MFAEnabled {
		token, _, err := e.jwtManager.Issue(jwt.TypeMFAPending, acct.ID, "")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
		}
		e.metricInc(MetricMFALoginRequired)
		return &LoginResult{MFARequired: true, MFAToken: token}, nil
	}

	pair, err := e.mintSession(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	e.loginSucceeded(ctx, acct, "password")
	return &LoginResult{Tokens: pair}, nil
}

// CompleteMFALogin describes the completemfalogin operation and its observable behavior.
//
// CompleteMFALogin exchanges an MFA pending token plus a current TOTP code
// for a session. Wrong codes count against the per-account TOTP limiter and
// leave the pending token usable until it expires; a successful exchange
// consumes it, so a replayed pending token fails with ErrMFAInvalid.
func (e *Engine) CompleteMFALogin(ctx context.Context, mfaToken, code string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	claims, err := e.jwtManager.Parse(mfaToken, jwt.TypeMFAPending)
	if err != nil {
		e.metricInc(MetricMFALoginFailure)
		return nil, ErrMFAInvalid
	}
	accountID := claims.Subject

	if err := e.totpLimiter.Check(ctx, accountID); err != nil {
		return nil, mapTOTPLimiterError(ctx, err)
	}

	acct, err := e.findAccount(ctx, accountID, ErrMFAInvalid)
	if err != nil {
		return nil, err
	}
	if err := statusError(acct.Status); err != nil {
		return nil, err
	}
	if !acct.MFAEnabled || acct.MFASecret == "" {
		return nil, ErrMFAInvalid
	}

	if err := e.checkTOTP(ctx, acct, code); err != nil {
		e.metricInc(MetricMFALoginFailure)
		if errors.Is(err, ErrTOTPInvalid) {
			e.publish(ctx, Event{
				Type:      EventLoginFailed,
				AccountID: acct.ID,
				Email:     acct.Email,
				Reason:    "totp_invalid",
			})
		}
		return nil, err
	}

	ttl := time.Until(claims.ExpiresAt.Time) + e.config.JWT.Leeway
	if ttl < time.Second {
		ttl = time.Second
	}
	first, err := e.mfaChallenges.MarkUsed(ctx, claims.ID, ttl)
	if err != nil {
		return nil, backendError(ctx, ErrSessionStoreUnavailable, err)
	}
	if !first {
		e.metricInc(MetricMFAReplayAttempt)
		return nil, ErrMFAInvalid
	}

	pair, err := e.mintSession(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricMFALoginSuccess)
	e.loginSucceeded(ctx, acct, "password+totp")
	return pair, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, accountID, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.publish(ctx, Event{
		Type:      EventLoginFailed,
		AccountID: accountID,
		Email:     email,
		Reason:    reason,
	})
	return ErrInvalidCredentials
}

func (e *Engine) loginSucceeded(ctx context.Context, acct *Account, method string) {
	e.metricInc(MetricLoginSuccess)
	e.publish(ctx, Event{
		Type:      EventLoginSuccess,
		AccountID: acct.ID,
		Email:     acct.Email,
		Phone:     acct.Phone,
		Success:   true,
		Metadata:  map[string]string{"method": method},
	})
}

// upgradePasswordHash re-hashes with current parameters after a successful
// verification. Best effort.
func (e *Engine) upgradePasswordHash(ctx context.Context, acct *Account, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.passwordHash.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return
	}
	if err := e.repo.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		e.logger.Warn("password hash upgrade failed",
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
	}
}

func mapTOTPLimiterError(ctx context.Context, err error) error {
	if errors.Is(err, limiters.ErrTOTPRateLimited) {
		return ErrTOTPRateLimited
	}
	return backendError(ctx, ErrSessionStoreUnavailable, err)
}
