package flows

import (
	"context"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Refresh.ParseRefreshToken != nil && s.deps.Refresh.SessionStore != nil
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, accountID, refreshToken string) LogoutResult {
	return RunLogout(ctx, accountID, refreshToken, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, accountID string) (int64, error) {
	return RunLogoutAll(ctx, accountID, s.deps.Logout)
}
