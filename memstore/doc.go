// Package memstore provides in-memory implementations of the authcore
// storage interfaces. They are intended for tests, examples, and small
// single-process deployments; nothing survives a restart.
package memstore
