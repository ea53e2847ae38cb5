// Package services defines shared utilities consumed by the upload workflow
// and the host integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, host IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (validation vs host vs transient) uniform across
//     packages.
//
// Use these helpers when wiring new upload logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
