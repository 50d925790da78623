// Package flows contains pure-function orchestrators for the session
// lifecycle operations of the Engine: refresh rotation and logout.
//
// Each flow function (RunRefresh, RunLogout, RunLogoutAll) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies, so it can be tested with mock dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, token parsing and
// session minting. They do NOT own any of these resources; ownership stays
// with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authgate (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
