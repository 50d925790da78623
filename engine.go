package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authgate/authgate/internal/events"
	"github.com/authgate/authgate/internal/flows"
	"github.com/authgate/authgate/internal/limiters"
	"github.com/authgate/authgate/internal/stores"
	"github.com/authgate/authgate/jwt"
	"github.com/authgate/authgate/password"
	"github.com/authgate/authgate/session"
)

// Engine is the session manager. It is safe for concurrent use once built
// through Builder.Build, and holds no lock across requests: rotation and
// revocation rely on per-key atomicity in Redis.
type Engine struct {
	config Config

	repo     CredentialRepository
	verifier IdentityVerifier
	notifier Notifier
	logger   *slog.Logger

	sessionStore  *session.Store
	otpStore      *stores.PhoneOTPStore
	mfaChallenges *stores.SingleUseStore
	resetTokens   *stores.SingleUseStore
	totpReplay    *stores.SingleUseStore
	otpLimiter    *limiters.PhoneOTPLimiter
	totpLimiter   *limiters.TOTPLimiter

	passwordHash       *password.Argon2
	registrationPolicy password.Policy
	resetPolicy        password.Policy
	jwtManager         *jwt.Manager
	totp               *totpManager

	events  *events.Dispatcher
	metrics *Metrics
	flows   flows.Service
}

// Close describes the close operation and its observable behavior.
//
// Close stops accepting events and blocks until queued events reach every
// sink. It does not close the Redis client or the repository.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.events.Close()
}

// EventsDropped reports how many events were discarded on a full buffer.
func (e *Engine) EventsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.events.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) ready() bool {
	return e != nil && e.repo != nil && e.jwtManager != nil && e.sessionStore != nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.config.OperationTimeout)
}

// backendError wraps err under sentinel, or under ErrTimeout when the
// operation deadline was the cause.
func backendError(ctx context.Context, sentinel, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func statusError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountSuspended:
		return ErrAccountSuspended
	default:
		return ErrAccountDeleted
	}
}

// mintSession issues an access/refresh pair and registers the refresh
// token's session record.
func (e *Engine) mintSession(ctx context.Context, accountID string) (*TokenPair, error) {
	access, accessClaims, err := e.jwtManager.Issue(jwt.TypeAccess, accountID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
	}
	refresh, refreshClaims, err := e.jwtManager.Issue(jwt.TypeRefresh, accountID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
	}
	if err := e.sessionStore.Save(ctx, accountID, refreshClaims.ID, e.config.JWT.RefreshTTL); err != nil {
		return nil, backendError(ctx, ErrSessionStoreUnavailable, err)
	}

	e.metricInc(MetricSessionCreated)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessClaims.ExpiresAt.Time,
	}, nil
}

// findAccount maps repository misses to notFound and everything else to a
// backend error.
func (e *Engine) findAccount(ctx context.Context, accountID string, notFound error) (*Account, error) {
	acct, err := e.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, notFound
		}
		return nil, backendError(ctx, ErrRepositoryUnavailable, err)
	}
	return acct, nil
}

// provision resolves the account bound to (provider, key), creating it with
// template on first use. A concurrent creator winning the binding race is
// resolved by re-reading the binding.
func (e *Engine) provision(ctx context.Context, provider Provider, key string, template Account) (*Account, bool, error) {
	acct, err := e.repo.FindByBinding(ctx, provider, key)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, backendError(ctx, ErrRepositoryUnavailable, err)
	}

	template.ID = newAccountID()
	template.Status = AccountActive
	created, err := e.repo.CreateWithBinding(ctx, template, IdentityBinding{
		Provider:    provider,
		ProviderKey: key,
		AccountID:   template.ID,
	})
	switch {
	case err == nil:
		return created, true, nil
	case errors.Is(err, ErrBindingExists):
		acct, err = e.repo.FindByBinding(ctx, provider, key)
		if err != nil {
			return nil, false, backendError(ctx, ErrRepositoryUnavailable, err)
		}
		return acct, false, nil
	default:
		return nil, false, backendError(ctx, ErrRepositoryUnavailable, err)
	}
}

// enqueue hands n to the notifier. Failures are logged and counted, never
// returned: the calling operation has already committed.
func (e *Engine) enqueue(ctx context.Context, n Notification) {
	if e.notifier == nil {
		e.logger.Debug("notification discarded, no notifier configured",
			slog.String("kind", string(n.Kind)),
		)
		return
	}

	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Notifications.EnqueueTimeout)
	defer cancel()

	if err := e.notifier.Enqueue(qctx, n); err != nil {
		e.metricInc(MetricNotificationEnqueueFailure)
		e.logger.Error("notification enqueue failed",
			slog.String("kind", string(n.Kind)),
			slog.String("account_id", n.AccountID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) buildFlowDeps() flows.Deps {
	return flows.Deps{
		Refresh: flows.RefreshDeps{
			ParseRefreshToken: func(token string) (string, string, error) {
				claims, err := e.jwtManager.Parse(token, jwt.TypeRefresh)
				if err != nil {
					return "", "", err
				}
				return claims.Subject, claims.ID, nil
			},
			AccountStatus: func(ctx context.Context, accountID string) (error, error) {
				acct, err := e.findAccount(ctx, accountID, ErrRefreshInvalid)
				switch {
				case errors.Is(err, ErrRefreshInvalid):
					return err, nil
				case err != nil:
					return nil, err
				}
				return statusError(acct.Status), nil
			},
			MintSession: func(ctx context.Context, accountID string) (flows.SessionTokens, error) {
				pair, err := e.mintSession(ctx, accountID)
				if err != nil {
					return flows.SessionTokens{}, err
				}
				return flows.SessionTokens{
					AccessToken:  pair.AccessToken,
					RefreshToken: pair.RefreshToken,
					ExpiresAt:    pair.ExpiresAt,
				}, nil
			},
			Warn: func(msg string, args ...any) {
				e.logger.Warn(msg, args...)
			},
			SessionStore: e.sessionStore,
		},
		Logout: flows.LogoutDeps{
			DecodeRefreshToken: func(token string) (string, string, error) {
				claims, err := e.jwtManager.Decode(token)
				if err != nil {
					return "", "", err
				}
				if claims.Type != jwt.TypeRefresh {
					return "", "", jwt.ErrWrongTokenType
				}
				return claims.Subject, claims.ID, nil
			},
			SessionStore: e.sessionStore,
		},
	}
}
