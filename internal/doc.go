// Package internal contains helpers that are private to authgate.
//
// # Sub-packages
//
//   - events — bounded async event dispatch (Dispatcher + Sink implementations)
//   - flows — refresh/logout orchestration over narrow dependency structs
//   - limiters — TOTP failure and phone OTP issuance limiters
//   - rate — Redis fixed-window counter primitive
//   - stores — short-lived Redis records (phone OTP codes, MFA challenge markers)
//   - config, logger — binary wiring for cmd/authd
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
package internal
