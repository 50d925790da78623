package rate

import "errors"

var (
	// ErrRateLimited is returned by callers that turn a denied Decision into an error.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport and server failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
