package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any transport or server failure from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidRecord is returned for empty account or token ids.
var ErrInvalidRecord = errors.New("invalid session record")

const (
	liveMarker   = "1"
	scanPageSize = 256
	deleteBatch  = 512
)

// Store is the registry of redeemable refresh tokens. A key exists exactly
// while the refresh token it names may still be exchanged.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store writing keys under prefix (default "session").
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "session"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Save registers tokenID for accountID with the refresh-token lifetime.
func (s *Store) Save(ctx context.Context, accountID, tokenID string, ttl time.Duration) error {
	rec := Record{AccountID: accountID, TokenID: tokenID}
	if err := rec.validate(); err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive ttl", ErrInvalidRecord)
	}
	if err := s.redis.Set(ctx, s.key(rec), liveMarker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether tokenID is still redeemable.
func (s *Store) Exists(ctx context.Context, accountID, tokenID string) (bool, error) {
	rec := Record{AccountID: accountID, TokenID: tokenID}
	if err := rec.validate(); err != nil {
		return false, err
	}
	n, err := s.redis.Exists(ctx, s.key(rec)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Consume deletes the record and reports whether this caller removed it.
// DEL is atomic on the server, so among concurrent callers presenting the
// same token exactly one observes true.
func (s *Store) Consume(ctx context.Context, accountID, tokenID string) (bool, error) {
	rec := Record{AccountID: accountID, TokenID: tokenID}
	if err := rec.validate(); err != nil {
		return false, err
	}
	n, err := s.redis.Del(ctx, s.key(rec)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Delete removes one record. Missing records are not an error.
func (s *Store) Delete(ctx context.Context, accountID, tokenID string) error {
	_, err := s.Consume(ctx, accountID, tokenID)
	return err
}

// DeleteAll removes every record under accountID and returns how many were
// deleted. Keys are discovered with SCAN so the server is never blocked by KEYS.
func (s *Store) DeleteAll(ctx context.Context, accountID string) (int64, error) {
	if accountID == "" {
		return 0, ErrInvalidRecord
	}

	pattern := s.prefix + ":" + escapeGlob(accountID) + ":*"
	var (
		cursor  uint64
		pending []string
		deleted int64
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := s.redis.Del(ctx, pending...).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		deleted += n
		pending = pending[:0]
		return nil
	}

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanPageSize).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		pending = append(pending, keys...)
		if len(pending) >= deleteBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// TTL returns the remaining lifetime of a record, or 0 if it does not exist.
func (s *Store) TTL(ctx context.Context, accountID, tokenID string) (time.Duration, error) {
	rec := Record{AccountID: accountID, TokenID: tokenID}
	if err := rec.validate(); err != nil {
		return 0, err
	}
	d, err := s.redis.PTTL(ctx, s.key(rec)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (s *Store) key(rec Record) string {
	return s.prefix + ":" + rec.AccountID + ":" + rec.TokenID
}

func escapeGlob(v string) string {
	if !strings.ContainsAny(v, `*?[]\`) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 4)
	for _, r := range v {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
