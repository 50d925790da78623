// Package httpapi serves the authgate Engine over JSON/HTTP with chi.
//
// Routes live under /auth. Anonymous endpoints carry per-client-IP fixed-window
// limits kept in Redis; exceeding one returns 429 with Retry-After. Bearer
// endpoints go through middleware.Guard. Engine errors are mapped by
// authgate.KindOf to a status code and a generic JSON body:
//
//	{"error": "unauthorized"}
package httpapi
