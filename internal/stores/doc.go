// Package stores provides short-lived, single-slot challenge code stores for
// MFA login and enrollment confirmation.
//
// # Design
//
// Each key (an email address or phone number) holds at most one pending
// code. Writing a new code replaces the previous one. Verification is
// single-use: a match consumes the record, a mismatch counts against the
// attempt limit, and exceeding the limit destroys the record. Secret
// comparisons use constant-time compare.
//
// Two implementations share the semantics: [MemoryCodeStore] for
// single-process deployments and [RedisCodeStore], which persists a
// versioned binary record with a TTL and mutates it under WATCH/MULTI
// optimistic transactions with retry on contention.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Generate codes or decide delivery channels.
//   - Log or expose plaintext codes.
package stores
