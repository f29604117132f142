// Package internal contains helper utilities that are intentionally private to authcore,
// including secure random generation for tokens, one-time codes, and passwords.
//
// # Sub-packages
//
//   - audit — async event dispatch plus the bounded in-memory event log
//   - limiters — account lockout tracking
//   - metrics — lock-free counters
//   - rate — sliding-window attempt limiter
//   - stores — short-lived challenge code stores (memory and Redis)
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
