package authgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/authgate/authgate/internal/flows"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh redeems refreshToken exactly once. Its session record is consumed
// atomically before a new pair is minted, so of any number of concurrent
// callers presenting the same token at most one succeeds. Expired, revoked,
// replayed and unknown tokens all fail with ErrRefreshInvalid. The account is
// read before the record is consumed, so a repository failure leaves the token
// redeemable for a retry.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricRefreshLatency, start)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := e.flows.Refresh(ctx, refreshToken)
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		return &TokenPair{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
			ExpiresAt:    res.Tokens.ExpiresAt,
		}, nil
	case flows.RefreshFailureDecode, flows.RefreshFailureSessionNotFound:
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	case flows.RefreshFailureAccountStatus:
		// Suspended and deleted accounts surface as Forbidden.
		e.metricInc(MetricRefreshFailure)
		return nil, res.Err
	case flows.RefreshFailureAccountLookup:
		// Already classified by findAccount; the token was not spent.
		e.metricInc(MetricRefreshFailure)
		return nil, res.Err
	case flows.RefreshFailureStore:
		e.metricInc(MetricRefreshFailure)
		return nil, backendError(ctx, ErrSessionStoreUnavailable, res.Err)
	default:
		e.metricInc(MetricRefreshFailure)
		return nil, res.Err
	}
}

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes the single session behind refreshToken. The token is decoded
// without signature or expiry checks so an expired token still logs out.
// Unreadable tokens, tokens of another account and already revoked sessions
// all succeed silently; only a store failure is returned.
func (e *Engine) Logout(ctx context.Context, accountID, refreshToken string) error {
	if !e.ready() || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := e.flows.Logout(ctx, accountID, refreshToken)
	if res.Err != nil {
		return backendError(ctx, ErrSessionStoreUnavailable, res.Err)
	}
	if res.Deleted {
		e.metricInc(MetricLogout)
	}
	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll revokes every session of accountID; outstanding refresh tokens
// fail from then on. Access tokens stay valid until they expire.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	if !e.ready() || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	return e.revokeAll(ctx, accountID)
}

func (e *Engine) revokeAll(ctx context.Context, accountID string) error {
	n, err := e.flows.LogoutAll(ctx, accountID)
	if err != nil {
		return backendError(ctx, ErrSessionStoreUnavailable, err)
	}
	e.metricInc(MetricLogoutAll)
	e.logger.Info("sessions revoked",
		slog.String("account_id", accountID),
		slog.Int64("count", n),
	)
	return nil
}
