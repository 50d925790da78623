package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSingleUseBackend = errors.New("single-use marker backend unavailable")

// SingleUseStore remembers redeemed identifiers (MFA pending token ids,
// password-reset token ids, TOTP time steps) until they could no longer be
// presented anyway.
type SingleUseStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewSingleUseStore(redisClient redis.UniversalClient, prefix string) *SingleUseStore {
	if prefix == "" {
		prefix = "used"
	}
	return &SingleUseStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

// MarkUsed records id as redeemed until ttl elapses. It reports false when
// id was already redeemed.
func (s *SingleUseStore) MarkUsed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.redis.SetNX(ctx, s.prefix+":"+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSingleUseBackend, err)
	}
	return ok, nil
}
