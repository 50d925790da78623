// Package authgate is a multi-method authentication and session engine:
// email/password with optional TOTP, phone one-time codes and Google sign-in,
// all converging on the same access/refresh token pair.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialRepository], [IdentityVerifier] and [Notifier] ports, and
// value types (TokenPair, LoginResult, MetricsSnapshot). Flow orchestration,
// Redis key layouts, rate limiting and event dispatch live under internal/
// and are never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or key layouts in its public API.
//   - Deliver notifications or events on the request path: both are handed off
//     to a queue and a bounded dispatcher respectively.
//   - Import any sub-package that re-imports authgate (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path and performs no Redis or repository round
// trip. Refresh and Logout take one atomic Redis operation on the session
// record plus the writes for the new pair.
package authgate
