package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podtenuki/internal/media/ffprobe"
	"podtenuki/internal/services"
)

// bytesPerEstimatedMinute is the size-based duration heuristic used when the
// container cannot be probed.
const bytesPerEstimatedMinute = 1024 * 1024

var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// Artifact is an audio file on local disk plus the metadata downstream stages
// need. Values are immutable once described.
type Artifact struct {
	Path              string
	ContentType       string
	SizeBytes         int64
	Duration          time.Duration
	DurationEstimated bool
	SampleRateHertz   int
}

// Name returns the file name without directories.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Stem returns the file name without extension.
func (a Artifact) Stem() string {
	return Stem(a.Path)
}

// Minutes returns the duration in fractional minutes.
func (a Artifact) Minutes() float64 {
	return a.Duration.Minutes()
}

// ContentTypeFor maps a file extension to the MIME type used for uploads.
// Unknown extensions fall back to application/octet-stream.
func ContentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsWAV reports whether the path carries a WAV extension.
func IsWAV(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wav" || ext == ".wave"
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EstimateDuration derives a rough duration from file size.
func EstimateDuration(size int64) time.Duration {
	if size <= 0 {
		return 0
	}
	minutes := float64(size) / bytesPerEstimatedMinute
	return time.Duration(minutes * float64(time.Minute))
}

// Describe stats path and probes its duration. Probe failures never fail the
// call; the duration is estimated from size instead. A missing file is a
// validation error.
func Describe(ctx context.Context, probe ffprobe.Prober, path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrValidation, "audio", "describe", fmt.Sprintf("audio file %q not found", path), err)
	}
	if info.IsDir() {
		return Artifact{}, services.Wrap(services.ErrValidation, "audio", "describe", fmt.Sprintf("%q is a directory", path), nil)
	}

	artifact := Artifact{
		Path:        path,
		ContentType: ContentTypeFor(path),
		SizeBytes:   info.Size(),
	}

	if probe != nil {
		if result, err := probe(ctx, path); err == nil {
			if duration, ok := result.Duration(); ok {
				artifact.Duration = duration
			}
			artifact.SampleRateHertz = result.SampleRateHertz()
		}
	}
	if artifact.Duration <= 0 {
		artifact.Duration = EstimateDuration(artifact.SizeBytes)
		artifact.DurationEstimated = true
	}
	return artifact, nil
}
