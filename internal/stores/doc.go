// Package stores provides Redis-backed, short-lived records for authentication
// flows.
//
//   - [PhoneOTPStore] — one outstanding one-time code per phone, stored as a
//     SHA-256 digest and consumed with GETDEL.
//   - [SingleUseStore] — SET NX markers that make MFA pending tokens,
//     password-reset tokens and accepted TOTP steps single use.
//
// # What this package must NOT do
//
//   - Import authgate or any sibling internal package.
//   - Log or expose plaintext codes.
//   - Use non-constant-time comparisons for secret matching.
package stores
