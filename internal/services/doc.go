// Package services defines shared utilities consumed by the pipeline stages
// and the remote job clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, input paths, and remote
//     job identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (configuration, timeout, remote job failure) with errors.Is.
//   - The mapping from pipeline errors to process exit codes.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
