package flows

import (
	"context"
	"errors"
	"time"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureSessionNotFound
	RefreshFailureStore
	RefreshFailureAccountStatus
	RefreshFailureAccountLookup
	RefreshFailureMint
)

// SessionTokens is a minted access/refresh pair.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	AccountID string
	TokenID   string
	Tokens    SessionTokens
}

type RefreshSessionStore interface {
	Consume(ctx context.Context, accountID, tokenID string) (bool, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefreshToken func(string) (accountID, tokenID string, err error)
	// AccountStatus reports why the account may not refresh (rejected) or
	// that the lookup itself failed (err).
	AccountStatus func(ctx context.Context, accountID string) (rejected, err error)
	MintSession   func(ctx context.Context, accountID string) (SessionTokens, error)
	Warn          func(string, ...any)
	SessionStore  RefreshSessionStore
}

// RunRefresh redeems a refresh token exactly once and mints its replacement.
// The presented token's record is consumed before the new pair exists, so at
// no point are both redeemable. Only the mint step can fail after the consume.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	accountID, tokenID, err := deps.ParseRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     err,
		}
	}

	// The account is read before the token is spent, so a repository outage
	// leaves the token redeemable.
	var rejected error
	if deps.AccountStatus != nil {
		rejected, err = deps.AccountStatus(ctx, accountID)
		if err != nil {
			return RefreshResult{
				Failure:   RefreshFailureAccountLookup,
				Err:       err,
				AccountID: accountID,
				TokenID:   tokenID,
			}
		}
	}

	consumed, err := deps.SessionStore.Consume(ctx, accountID, tokenID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureStore,
			Err:       err,
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}
	if !consumed {
		// Logged out, expired and replayed tokens are indistinguishable here.
		if deps.Warn != nil {
			deps.Warn("refresh token not redeemable", "account_id", accountID)
		}
		return RefreshResult{
			Failure:   RefreshFailureSessionNotFound,
			Err:       errors.New("session not found"),
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	// A rejected account still spends the token.
	if rejected != nil {
		return RefreshResult{
			Failure:   RefreshFailureAccountStatus,
			Err:       rejected,
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	tokens, err := deps.MintSession(ctx, accountID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureMint,
			Err:       err,
			AccountID: accountID,
			TokenID:   tokenID,
		}
	}

	return RefreshResult{
		Failure:   RefreshFailureNone,
		AccountID: accountID,
		TokenID:   tokenID,
		Tokens:    tokens,
	}
}
