package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authgate/authgate/internal"
	"github.com/authgate/authgate/internal/limiters"
	"github.com/authgate/authgate/internal/stores"
)

// RequestPhoneOTP describes the requestphoneotp operation and its observable behavior.
//
// RequestPhoneOTP sends a fresh random code to an E.164 phone number through
// the notifier. The code is never returned. A phone that already received
// PhoneOTP.MaxIssues codes within the window fails with ErrOTPRateLimited.
// A new code replaces any outstanding one.
func (e *Engine) RequestPhoneOTP(ctx context.Context, phone string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	normalized, err := normalizePhone(phone)
	if err != nil {
		return err
	}

	if err := e.otpLimiter.Check(ctx, normalized); err != nil {
		if errors.Is(err, limiters.ErrOTPIssueLimited) {
			e.metricInc(MetricPhoneOTPRateLimited)
			return ErrOTPRateLimited
		}
		return backendError(ctx, ErrSessionStoreUnavailable, err)
	}

	code, err := internal.NewOTP(e.config.PhoneOTP.Digits)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := e.otpStore.Save(ctx, normalized, code, e.config.PhoneOTP.TTL); err != nil {
		return backendError(ctx, ErrSessionStoreUnavailable, err)
	}
	if err := e.otpLimiter.Record(ctx, normalized); err != nil {
		e.logger.Warn("otp issuance not counted", slog.String("error", err.Error()))
	}

	e.metricInc(MetricPhoneOTPIssued)
	e.enqueue(ctx, Notification{
		Kind: NotifySendOTP,
		To:   normalized,
		Code: code,
	})
	return nil
}

// VerifyPhoneOTP describes the verifyphoneotp operation and its observable behavior.
//
// VerifyPhoneOTP consumes the outstanding code for phone; any well-formed
// attempt deletes it, so a code is redeemable once and a wrong guess burns
// it. On a match the PHONE-bound account is resolved or provisioned and a
// session is minted. Absent, expired and wrong codes all fail with
// ErrOTPInvalid.
func (e *Engine) VerifyPhoneOTP(ctx context.Context, phone, code string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricLoginLatency, start)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	normalized, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if len(code) != e.config.PhoneOTP.Digits || !internal.IsNumeric(code) {
		e.metricInc(MetricPhoneOTPVerifyFailure)
		return nil, ErrOTPInvalid
	}

	if err := e.otpStore.Consume(ctx, normalized, code); err != nil {
		if errors.Is(err, stores.ErrPhoneOTPNotFound) || errors.Is(err, stores.ErrPhoneOTPMismatch) {
			e.metricInc(MetricPhoneOTPVerifyFailure)
			e.publish(ctx, Event{
				Type:     EventLoginFailed,
				Phone:    normalized,
				Reason:   "otp_invalid",
				Metadata: map[string]string{"method": "phone"},
			})
			return nil, ErrOTPInvalid
		}
		return nil, backendError(ctx, ErrSessionStoreUnavailable, err)
	}

	acct, created, err := e.provision(ctx, ProviderPhone, normalized, Account{Phone: normalized})
	if err != nil {
		return nil, err
	}
	if created {
		e.metricInc(MetricRegisterSuccess)
		e.publish(ctx, Event{
			Type:      EventAccountRegistered,
			AccountID: acct.ID,
			Phone:     normalized,
			Success:   true,
			Metadata:  map[string]string{"provider": string(ProviderPhone)},
		})
	}
	if err := statusError(acct.Status); err != nil {
		return nil, err
	}

	pair, err := e.mintSession(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricPhoneOTPVerifySuccess)
	e.loginSucceeded(ctx, acct, "phone")
	return pair, nil
}
