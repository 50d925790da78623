package authgate

import (
	"context"
	"fmt"
)

// SetAccountStatus describes the setaccountstatus operation and its observable behavior.
//
// SetAccountStatus changes the lifecycle status of an account. Moving to
// SUSPENDED or DELETED also revokes every session; outstanding access tokens
// stay valid until expiry. An unknown account fails with ErrAccountNotFound.
func (e *Engine) SetAccountStatus(ctx context.Context, accountID string, status AccountStatus) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if status > AccountDeleted {
		return fmt.Errorf("%w: account status %d", ErrInvalidInput, status)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	acct, err := e.findAccount(ctx, accountID, ErrAccountNotFound)
	if err != nil {
		return err
	}
	previous := acct.Status

	if err := e.repo.UpdateStatus(ctx, acct.ID, status); err != nil {
		return backendError(ctx, ErrRepositoryUnavailable, err)
	}
	if status != AccountActive {
		if err := e.revokeAll(ctx, acct.ID); err != nil {
			return err
		}
	}

	e.metricInc(MetricAccountStatusChanged)
	e.publish(ctx, Event{
		Type:      EventAccountStatusChanged,
		AccountID: acct.ID,
		Success:   true,
		Metadata: map[string]string{
			"from": previous.String(),
			"to":   status.String(),
		},
	})
	return nil
}
