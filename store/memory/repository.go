// Package memory is an in-process authgate.CredentialRepository for tests and
// single-node development. Data is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authgate/authgate"
)

type bindingKey struct {
	provider authgate.Provider
	key      string
}

// Repository guards every operation with one mutex, which makes
// CreateWithBinding atomic.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]*authgate.Account
	bindings map[bindingKey]authgate.IdentityBinding
	now      func() time.Time
}

var _ authgate.CredentialRepository = (*Repository)(nil)

// New returns an empty Repository.
func New() *Repository {
	return &Repository{
		accounts: make(map[string]*authgate.Account),
		bindings: make(map[bindingKey]authgate.IdentityBinding),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindByBinding implements authgate.CredentialRepository.
func (r *Repository) FindByBinding(ctx context.Context, provider authgate.Provider, key string) (*authgate.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[bindingKey{provider, key}]
	if !ok {
		return nil, authgate.ErrAccountNotFound
	}
	return r.copyOf(b.AccountID)
}

// FindByID implements authgate.CredentialRepository.
func (r *Repository) FindByID(ctx context.Context, accountID string) (*authgate.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(accountID)
}

// CreateWithBinding implements authgate.CredentialRepository.
func (r *Repository) CreateWithBinding(ctx context.Context, account authgate.Account, binding authgate.IdentityBinding) (*authgate.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if account.MFAEnabled && account.MFASecret == "" {
		return nil, authgate.ErrTOTPNotStaged
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := bindingKey{binding.Provider, binding.ProviderKey}
	if _, ok := r.bindings[k]; ok {
		return nil, authgate.ErrBindingExists
	}
	if _, ok := r.accounts[account.ID]; ok {
		return nil, authgate.ErrBindingExists
	}

	now := r.now()
	account.CreatedAt, account.UpdatedAt = now, now
	stored := account
	r.accounts[account.ID] = &stored

	binding.AccountID = account.ID
	binding.CreatedAt = now
	r.bindings[k] = binding

	out := stored
	return &out, nil
}

// UpdatePasswordHash implements authgate.CredentialRepository.
func (r *Repository) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	return r.update(ctx, accountID, func(a *authgate.Account) error {
		a.PasswordHash = hash
		return nil
	})
}

// StageTOTPSecret implements authgate.CredentialRepository.
func (r *Repository) StageTOTPSecret(ctx context.Context, accountID, secret string) error {
	return r.update(ctx, accountID, func(a *authgate.Account) error {
		a.MFASecret = secret
		a.MFAEnabled = false
		return nil
	})
}

// EnableTOTP implements authgate.CredentialRepository.
func (r *Repository) EnableTOTP(ctx context.Context, accountID string) error {
	return r.update(ctx, accountID, func(a *authgate.Account) error {
		if a.MFASecret == "" {
			return authgate.ErrTOTPNotStaged
		}
		a.MFAEnabled = true
		return nil
	})
}

// DisableTOTP implements authgate.CredentialRepository.
func (r *Repository) DisableTOTP(ctx context.Context, accountID string) error {
	return r.update(ctx, accountID, func(a *authgate.Account) error {
		a.MFAEnabled = false
		a.MFASecret = ""
		return nil
	})
}

// UpdateStatus implements authgate.CredentialRepository.
func (r *Repository) UpdateStatus(ctx context.Context, accountID string, status authgate.AccountStatus) error {
	return r.update(ctx, accountID, func(a *authgate.Account) error {
		a.Status = status
		return nil
	})
}

// Bindings returns the bindings of accountID.
func (r *Repository) Bindings(accountID string) []authgate.IdentityBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []authgate.IdentityBinding
	for _, b := range r.bindings {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	return out
}

func (r *Repository) update(ctx context.Context, accountID string, fn func(*authgate.Account) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[accountID]
	if !ok {
		return authgate.ErrAccountNotFound
	}
	next := *acct
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = r.now()
	*acct = next
	return nil
}

// copyOf must be called with r.mu held.
func (r *Repository) copyOf(accountID string) (*authgate.Account, error) {
	acct, ok := r.accounts[accountID]
	if !ok {
		return nil, authgate.ErrAccountNotFound
	}
	out := *acct
	return &out, nil
}
