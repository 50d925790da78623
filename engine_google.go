package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoginWithGoogle describes the loginwithgoogle operation and its observable behavior.
//
// LoginWithGoogle verifies idToken through the configured IdentityVerifier
// and resolves the GOOGLE binding for the verified subject, provisioning a
// password-less account on first use. Rejected tokens, and verified tokens
// without subject or email, fail with ErrIdentityRejected.
func (e *Engine) LoginWithGoogle(ctx context.Context, idToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.verifier == nil {
		return nil, ErrProviderNotConfigured
	}
	start := time.Now()
	defer e.observeSince(MetricLoginLatency, start)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(idToken) == "" {
		e.metricInc(MetricGoogleLoginFailure)
		return nil, ErrIdentityRejected
	}

	ident, err := e.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		e.metricInc(MetricGoogleLoginFailure)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		e.publish(ctx, Event{Type: EventLoginFailed, Reason: "identity_rejected", Metadata: map[string]string{"method": "google"}})
		return nil, fmt.Errorf("%w: %w", ErrIdentityRejected, err)
	}
	if ident.Subject == "" || ident.Email == "" {
		e.metricInc(MetricGoogleLoginFailure)
		return nil, ErrIdentityRejected
	}

	acct, created, err := e.provision(ctx, ProviderGoogle, ident.Subject, Account{
		Email: strings.ToLower(strings.TrimSpace(ident.Email)),
	})
	if err != nil {
		return nil, err
	}
	if created {
		e.metricInc(MetricRegisterSuccess)
		e.publish(ctx, Event{
			Type:      EventAccountRegistered,
			AccountID: acct.ID,
			Email:     acct.Email,
			Success:   true,
			Metadata:  map[string]string{"provider": string(ProviderGoogle)},
		})
	}
	if err := statusError(acct.Status); err != nil {
		e.metricInc(MetricGoogleLoginFailure)
		return nil, err
	}

	pair, err := e.mintSession(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricGoogleLoginSuccess)
	e.loginSucceeded(ctx, acct, "google")
	return pair, nil
}
