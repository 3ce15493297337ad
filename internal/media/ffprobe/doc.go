// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - Prober: injectable inspection function
//
// Helper methods on Result provide stream counts, sample rate, and duration
// parsing with explicit handling of malformed values.
package ffprobe
