// Package audit implements async event dispatching and the bounded in-memory
// event log for security-relevant operations.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Recorder] — bounded, age-limited in-memory event log with per-type counts.
//   - [Event] — structured audit record with timestamp, type, identifier, details.
//
// # Architecture boundaries
//
// This package owns event buffering, retention, and sink delivery. It does NOT
// decide which events to emit — that responsibility belongs to the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authcore or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
