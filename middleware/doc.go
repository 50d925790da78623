// Package middleware adapts authgate.Engine to net/http.
//
// # Middleware
//
//   - [Guard] requires a bearer access token and stores the verified
//     [authgate.AccessResult] in the request context.
//   - [ClientMeta] copies the caller IP and User-Agent into the context so
//     login events carry them.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (ValidateAccess is stateless).
//   - Make authorization decisions beyond pass/reject.
package middleware
