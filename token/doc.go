// Package token implements HS256 JWT issuance, validation, and revocation
// for access, refresh, and temporary MFA tokens.
package token
