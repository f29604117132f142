// Package rate provides a per-key sliding-window attempt limiter for
// security-sensitive authentication workflows.
//
// # Window semantics
//
// Each key holds the timestamps of its recent attempts. An attempt is
// admitted when fewer than the configured maximum fall inside the trailing
// window; admitted attempts are recorded, rejected attempts are not. State
// lives in process memory, so every window resets on restart.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the Engine).
//   - Be imported outside the authcore module.
package rate
