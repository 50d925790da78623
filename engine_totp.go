package authgate

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/authgate/authgate/internal/limiters"
)

// SetupTOTP describes the setuptotp operation and its observable behavior.
//
// SetupTOTP generates a fresh secret and stages it with MFA still disabled,
// so it grants nothing until VerifyAndEnableTOTP confirms a code. Calling it
// again before confirmation replaces the staged secret.
func (e *Engine) SetupTOTP(ctx context.Context, accountID string) (*TOTPSetup, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	acct, err := e.findAccount(ctx, accountID, ErrTokenInvalid)
	if err != nil {
		return nil, err
	}
	if err := statusError(acct.Status); err != nil {
		return nil, err
	}
	if acct.MFAEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	_, secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := e.repo.StageTOTPSecret(ctx, acct.ID, secret); err != nil {
		return nil, backendError(ctx, ErrRepositoryUnavailable, err)
	}

	e.metricInc(MetricTOTPSetup)
	return &TOTPSetup{
		URI:    e.totp.ProvisionURI(secret, totpLabel(acct)),
		Secret: secret,
	}, nil
}

// VerifyAndEnableTOTP describes the verifyandenabletotp operation and its observable behavior.
//
// VerifyAndEnableTOTP checks code against the staged secret with ±1 step of
// drift and flips MFA on. It fails with ErrTOTPNotConfigured when nothing is
// staged and ErrTOTPInvalid on a wrong code.
func (e *Engine) VerifyAndEnableTOTP(ctx context.Context, accountID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.totpLimiter.Check(ctx, accountID); err != nil {
		return mapTOTPLimiterError(ctx, err)
	}
	acct, err := e.findAccount(ctx, accountID, ErrTokenInvalid)
	if err != nil {
		return err
	}
	if acct.MFASecret == "" {
		return ErrTOTPNotConfigured
	}
	if acct.MFAEnabled {
		return ErrTOTPAlreadyEnabled
	}
	if err := e.checkTOTP(ctx, acct, code); err != nil {
		return err
	}

	if err := e.repo.EnableTOTP(ctx, acct.ID); err != nil {
		if errors.Is(err, ErrTOTPNotStaged) {
			return ErrTOTPNotConfigured
		}
		return backendError(ctx, ErrRepositoryUnavailable, err)
	}
	e.metricInc(MetricTOTPEnabled)
	e.logger.Info("totp enabled", slog.String("account_id", acct.ID))
	return nil
}

// DisableTOTP turns MFA off after a valid current code and clears the secret.
func (e *Engine) DisableTOTP(ctx context.Context, accountID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.totpLimiter.Check(ctx, accountID); err != nil {
		return mapTOTPLimiterError(ctx, err)
	}
	acct, err := e.findAccount(ctx, accountID, ErrTokenInvalid)
	if err != nil {
		return err
	}
	if !acct.MFAEnabled || acct.MFASecret == "" {
		return ErrTOTPNotConfigured
	}
	if err := e.checkTOTP(ctx, acct, code); err != nil {
		return err
	}

	if err := e.repo.DisableTOTP(ctx, acct.ID); err != nil {
		return backendError(ctx, ErrRepositoryUnavailable, err)
	}
	e.metricInc(MetricTOTPDisabled)
	e.logger.Info("totp disabled", slog.String("account_id", acct.ID))
	return nil
}

// checkTOTP verifies code for acct, counting failures against the limiter
// and rejecting a time step that was already accepted.
func (e *Engine) checkTOTP(ctx context.Context, acct *Account, code string) error {
	ok, counter, err := e.totp.VerifyBase32(acct.MFASecret, code, time.Now())
	if err != nil {
		e.logger.Error("stored totp secret unreadable",
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
	}
	if !ok {
		e.metricInc(MetricTOTPFailure)
		if lerr := e.totpLimiter.RecordFailure(ctx, acct.ID); lerr != nil && !errors.Is(lerr, limiters.ErrTOTPRateLimited) {
			e.logger.Warn("totp failure not recorded",
				slog.String("account_id", acct.ID),
				slog.String("error", lerr.Error()),
			)
		}
		return ErrTOTPInvalid
	}

	if e.totpReplay != nil {
		first, err := e.totpReplay.MarkUsed(ctx, acct.ID+":"+strconv.FormatInt(counter, 10), e.totp.replayWindow())
		if err != nil {
			return backendError(ctx, ErrSessionStoreUnavailable, err)
		}
		if !first {
			e.metricInc(MetricTOTPFailure)
			return ErrTOTPInvalid
		}
	}

	if err := e.totpLimiter.Reset(ctx, acct.ID); err != nil {
		e.logger.Warn("totp limiter reset failed",
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func totpLabel(acct *Account) string {
	switch {
	case acct.Email != "":
		return acct.Email
	case acct.Phone != "":
		return acct.Phone
	default:
		return acct.ID
	}
}
