// Package rate provides the Redis fixed-window counter shared by every limiter
// in authgate.
//
// # Window semantics
//
// INCR + PEXPIRE NX in one transaction. The window starts at the first hit
// and is not extended by later hits. A counter left without a TTL gets one on
// its next hit. Over- or under-counting by a few hits under a
// burst of concurrent requests is acceptable.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters and httpapi).
//   - Be imported outside the authgate module.
package rate
