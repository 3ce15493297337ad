// Package pipeline runs one podcast episode through concatenation,
// enhancement, transcription, and show-notes generation.
//
// Stages run in order against a shared episode.Episode. Concatenation and
// precondition failures end the run; enhancement falls back to the original
// audio; transcription and summarization failures are reported while the
// run continues.
package pipeline
