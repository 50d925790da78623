// Package jwt issues and verifies the signed tokens used by authgate.
//
// Four token types share one [Claims] shape and are told apart by the "type"
// claim:
//
//   - access: short-lived bearer credential (subject only).
//   - refresh: carries a unique jti that keys the server-side session record.
//   - mfa_pending: scope=mfa_pending, jti for single use; grants nothing but
//     the second-factor step.
//   - password-reset: authorizes one password change.
//
// [Manager.Parse] always checks the expected type, so a token minted for one
// purpose is rejected everywhere else.
package jwt
