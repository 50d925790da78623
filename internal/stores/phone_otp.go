package stores

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrPhoneOTPNotFound = errors.New("phone otp not found")
	ErrPhoneOTPMismatch = errors.New("phone otp mismatch")
	ErrPhoneOTPBackend  = errors.New("phone otp backend unavailable")
)

// PhoneOTPStore keeps at most one outstanding code per phone number.
type PhoneOTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewPhoneOTPStore(redisClient redis.UniversalClient, prefix string) *PhoneOTPStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &PhoneOTPStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *PhoneOTPStore) key(phone string) string {
	return s.prefix + ":" + phone
}

// Save replaces any outstanding code for phone.
func (s *PhoneOTPStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(phone), digest(phone, code), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPhoneOTPBackend, err)
	}
	return nil
}

// Consume atomically removes the outstanding code and compares it with code.
// The record is gone after every call, whether or not the code matched.
func (s *PhoneOTPStore) Consume(ctx context.Context, phone, code string) error {
	stored, err := s.redis.GetDel(ctx, s.key(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrPhoneOTPNotFound
		}
		return fmt.Errorf("%w: %v", ErrPhoneOTPBackend, err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(digest(phone, code))) != 1 {
		return ErrPhoneOTPMismatch
	}
	return nil
}

func digest(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + "\x00" + code))
	return hex.EncodeToString(sum[:])
}
