// Package audio describes local audio files as immutable artifacts that flow
// between pipeline stages: path, upload content type, size, and a duration
// that is probed with ffprobe or estimated from size.
package audio
