// Package middleware exposes HTTP middleware adapters that enforce access-token
// authentication and role checks on top of authcore.Engine validation.
//
// # Guards
//
//   - [Guard] — verifies the bearer access token and injects the user.
//   - [RequireRole] — Guard plus a role allow-list.
//
// Each guard reads the Authorization header, calls Engine.Authenticate, and
// injects the validated user into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch account storage (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine and the
//     configured role allow-list.
package middleware
