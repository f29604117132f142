// Package authcore is the authentication and token-security core of the
// Academix school-management backend: unified multi-role login with MFA
// branching, JWT issuance/rotation/blacklisting, and the abuse-control layer
// (rate limiting, account lockout, password policy) that gates every entry
// point into it.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([AccountStore], [MFAStore]), and the result
// value types. All internal coordination — rate limiting, lockout tracking,
// audit dispatch, pending-code storage — lives under internal/ and is never
// exported. Signing, hashing, and delivery are reusable subpackages (token,
// password, notify).
//
// # What this package must NOT do
//
//   - Own persistence: accounts and MFA enrollments are read and written
//     through the [AccountStore] and [MFAStore] interfaces only.
//   - Deliver anything itself: email and SMS go through [notify.Mailer] and
//     [notify.SMSSender]; delivery failure never fails the primary operation.
//   - Expose Redis clients, internal stores, or token encoding details in its
//     public API.
//
// # Failure contract
//
// Expected domain failures (bad password, locked account, expired token)
// surface as exported sentinel errors, never panics. Token parse and
// cryptographic failures collapse to a rejection at the public API; the true
// internal reason is recorded on the audit log so operators keep the
// visibility end users do not get.
package authcore
