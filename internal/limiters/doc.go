// Package limiters provides domain-specific limiters built on top of the
// internal/rate counter.
//
// # Limiters
//
//   - [TOTPLimiter] — per-account failure budget for second-factor codes (5 / 60s).
//   - [PhoneOTPLimiter] — per-phone issuance cap for one-time codes (3 / hour).
//
// TOTPLimiter methods are nil-safe.
//
// # What this package must NOT do
//
//   - Import authgate or any sibling internal package except internal/rate.
//   - Make policy decisions beyond counting; the Engine decides consequences.
package limiters
