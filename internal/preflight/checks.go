package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"podtenuki/internal/config"
	"podtenuki/internal/deps"
	"podtenuki/internal/services/auphonic"
	"podtenuki/internal/services/llm"
)

// CheckLLM verifies that the chat-completion API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.Summarization) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Skipped: true, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Detail: fmt.Sprintf("API reachable (%s)", client.Model()), Passed: true}
}

// CheckEnhancement verifies the Auphonic key by listing presets.
func CheckEnhancement(ctx context.Context, cfg config.Enhancement) Result {
	const name = "Auphonic"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Skipped: true, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := auphonic.NewClient(auphonic.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		TimeoutSeconds: cfg.RequestTimeoutSeconds,
	})
	presets, err := client.ListPresets(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%d presets)", len(presets))}
}

// CheckBucket verifies the transcription staging bucket exists. The bucket is
// never created here.
func CheckBucket(ctx context.Context, store BucketChecker, bucket string) Result {
	const name = "Storage bucket"
	bucket = strings.TrimSpace(bucket)
	switch {
	case bucket == "":
		return Result{Name: name, Skipped: true, Detail: "bucket not configured"}
	case store == nil:
		return Result{Name: name, Skipped: true, Detail: fmt.Sprintf("gs://%s (no storage client)", bucket)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	exists, err := store.BucketExists(checkCtx, bucket)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	if !exists {
		return Result{Name: name, Detail: fmt.Sprintf("gs://%s does not exist (create it with: gcloud storage buckets create gs://%s)", bucket, bucket)}
	}
	return Result{Name: name, Passed: true, Detail: "gs://" + bucket}
}

// CheckCredentialsFile verifies the Google service-account key is readable.
func CheckCredentialsFile(path string) Result {
	const name = "Google credentials"
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Skipped: true, Detail: "credentials file not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for WAV concatenation",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Used for audio duration probes",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// summarizeAPIError produces a human-readable summary for health check failures.
func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
