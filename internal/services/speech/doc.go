// Package speech transcribes audio with Google Cloud Speech-to-Text. Audio is
// staged in an existing Cloud Storage bucket and always recognized through a
// long-running operation. Storage and recognition sit behind small interfaces
// so tests can run against in-memory fakes.
package speech
