// Package password implements credential hashing with bcrypt and the
// strength policy applied to user-chosen passwords.
//
// # Hashing
//
// [Bcrypt] wraps golang.org/x/crypto/bcrypt at a configurable cost and will
// only verify against hashes carrying a recognized bcrypt prefix ($2a$,
// $2b$, $2y$). Verification failure and malformed hashes are reported the
// same way so callers cannot distinguish them.
//
// # Policy
//
// [Policy] collects every violation instead of stopping at the first, so
// callers can surface the full list to the user.
//
// # What this package must NOT do
//
//   - Log plaintext passwords or hashes.
//   - Import authcore or any internal package.
package password
