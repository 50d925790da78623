package authgate

import (
	"context"
	"time"

	"github.com/authgate/authgate/jwt"
)

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess verifies signature, expiry and type=access of tokenStr
// without touching Redis or the repository. Any failure is ErrTokenInvalid.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AccessResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricValidateLatency, start)

	claims, err := e.jwtManager.Parse(tokenStr, jwt.TypeAccess)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return &AccessResult{
		AccountID: claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
