package preflight

import (
	"context"
	"os"

	"podtenuki/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// BucketChecker reports whether a storage bucket exists.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// Probes carries optional backends for checks that need a live client.
type Probes struct {
	Storage BucketChecker
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, probes Probes) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Path}
		if status.Version != "" {
			result.Detail = status.Version
		}
		if !status.Available {
			result.Detail = status.Detail
			result.Skipped = status.Optional
		}
		results = append(results, result)
	}

	outputDir := cfg.Paths.OutputDir
	if outputDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			outputDir = cwd
		}
	}
	results = append(results, CheckDirectoryAccess("Output directory", outputDir))

	results = append(results, CheckEnhancement(ctx, cfg.Enhancement))
	results = append(results, CheckCredentialsFile(cfg.Transcription.CredentialsFile))
	results = append(results, CheckBucket(ctx, probes.Storage, cfg.Transcription.Bucket))
	results = append(results, CheckLLM(ctx, "OpenAI", cfg.Summarization))

	return results
}

// Failed reports whether any non-skipped check failed.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed && !result.Skipped {
			return true
		}
	}
	return false
}
