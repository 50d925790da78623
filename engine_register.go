package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RegisterWithEmail describes the registerwithemail operation and its observable behavior.
//
// RegisterWithEmail normalizes email, enforces the registration password
// policy, and creates the account together with its EMAIL binding. A taken
// binding fails with ErrAccountExists. On success it publishes
// account.registered, enqueues a welcome email (failures are only logged) and
// returns a fresh session.
func (e *Engine) RegisterWithEmail(ctx context.Context, email, plaintext string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := e.registrationPolicy.Check(plaintext); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
	}

	_, err = e.repo.FindByBinding(ctx, ProviderEmail, normalized)
	switch {
	case err == nil:
		e.metricInc(MetricRegisterDuplicate)
		return nil, ErrAccountExists
	case !errors.Is(err, ErrAccountNotFound):
		return nil, backendError(ctx, ErrRepositoryUnavailable, err)
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
	}

	accountID := newAccountID()
	acct, err := e.repo.CreateWithBinding(ctx, Account{
		ID:           accountID,
		Email:        normalized,
		PasswordHash: hash,
		Status:       AccountActive,
	}, IdentityBinding{
		Provider:    ProviderEmail,
		ProviderKey: normalized,
		AccountID:   accountID,
	})
	if err != nil {
		if errors.Is(err, ErrBindingExists) {
			e.metricInc(MetricRegisterDuplicate)
			return nil, ErrAccountExists
		}
		return nil, backendError(ctx, ErrRepositoryUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.logger.Info("account registered", slog.String("account_id", acct.ID))
	e.publish(ctx, Event{
		Type:      EventAccountRegistered,
		AccountID: acct.ID,
		Email:     normalized,
		Success:   true,
		Metadata:  map[string]string{"provider": string(ProviderEmail)},
	})
	e.enqueue(ctx, Notification{
		Kind:      NotifyWelcomeEmail,
		To:        normalized,
		AccountID: acct.ID,
	})

	return e.mintSession(ctx, acct.ID)
}
