// Package session provides the Redis-backed registry of redeemable refresh
// tokens.
//
// # Key layout
//
//	<prefix>:<accountID>:<tokenID> = "1"  (TTL = refresh-token lifetime)
//
// Existence of the key is the sole source of truth for whether a refresh token
// can still be exchanged. A valid signature is necessary but not sufficient.
//
// # Operations
//
//   - [Store.Save] registers a freshly minted refresh token.
//   - [Store.Consume] deletes and reports whether this caller won the delete.
//   - [Store.DeleteAll] revokes every token of one account (SCAN + DEL).
//
// # What this package must NOT do
//
//   - Parse or verify tokens.
//   - Import authgate or jwt.
package session
