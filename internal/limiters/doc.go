// Package limiters provides the automatic account lockout tracker.
//
// # Semantics
//
// Failed login attempts are counted per identifier inside a rolling window
// that starts at the first failure. Reaching the threshold locks the
// identifier for the remainder of the window; a successful login clears the
// counter. State lives in process memory, so locks reset on restart.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Make policy decisions beyond counting — the Engine decides consequences.
package limiters
