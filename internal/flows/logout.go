package flows

import (
	"context"
)

type LogoutSessionStore interface {
	Delete(ctx context.Context, accountID, tokenID string) error
	DeleteAll(ctx context.Context, accountID string) (int64, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	// DecodeRefreshToken extracts subject and token id without verifying
	// signature or expiry.
	DecodeRefreshToken func(string) (accountID, tokenID string, err error)
	SessionStore       LogoutSessionStore
}

// LogoutResult reports what a single-session logout touched. Err is only set
// for store failures; unreadable or foreign tokens are a successful no-op.
type LogoutResult struct {
	TokenID string
	Deleted bool
	Err     error
}

// RunLogout revokes the session behind refreshToken when it belongs to accountID.
func RunLogout(ctx context.Context, accountID, refreshToken string, deps LogoutDeps) LogoutResult {
	subject, tokenID, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil || tokenID == "" {
		return LogoutResult{}
	}
	if accountID != "" && subject != accountID {
		return LogoutResult{TokenID: tokenID}
	}
	if err := deps.SessionStore.Delete(ctx, subject, tokenID); err != nil {
		return LogoutResult{TokenID: tokenID, Err: err}
	}
	return LogoutResult{TokenID: tokenID, Deleted: true}
}

// RunLogoutAll revokes every session of accountID and returns how many were removed.
func RunLogoutAll(ctx context.Context, accountID string, deps LogoutDeps) (int64, error) {
	return deps.SessionStore.DeleteAll(ctx, accountID)
}
