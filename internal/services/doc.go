// Package services defines shared utilities consumed by the console components
// and the backend integration.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, target filenames, folders, and
//     correlation identifiers for logging and request tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (fetch, upload, delete, metadata, job status) so the coordinator can
//     turn any of them into a single user-facing alert via UserMessage.
//
// External integrations live in subpackages (see services/backend). Use these
// helpers when wiring new operations so error reporting and observability stay
// uniform across the console.
package services
