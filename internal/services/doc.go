// Package services defines shared utilities consumed by the upload commands
// and the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp ledger upload IDs, source paths, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent CLI exit codes.
//
// Integrations with remote services live in subpackages (youtube).
package services
