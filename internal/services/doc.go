// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp event IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the workflow
//     manager decide between retrying an event and failing it.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
