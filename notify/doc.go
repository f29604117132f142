// Package notify defines the outbound delivery interfaces the engine uses
// for verification links, reset links, welcome messages, and MFA codes,
// plus log-only adapters for development.
//
// Delivery is best effort from the engine's point of view: a returned error
// is logged and audited but never fails the triggering operation, because
// the account mutation it follows has already been persisted.
package notify
