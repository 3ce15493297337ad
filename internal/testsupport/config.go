package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"podtenuki/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DotEnv = filepath.Join(base, ".env")
	cfgVal.Enhancement.APIKey = "test-auphonic"
	cfgVal.Summarization.APIKey = "test-openai"
	cfgVal.Transcription.ProjectID = "test-project"
	cfgVal.Transcription.Bucket = "test-bucket"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutCredentials clears every service credential on the test config.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enhancement.APIKey = ""
		b.cfg.Summarization.APIKey = ""
		b.cfg.Transcription.CredentialsFile = ""
		b.cfg.Transcription.ProjectID = ""
		b.cfg.Transcription.Bucket = ""
	}
}

// WithCredentialsFile writes a placeholder service-account key and points the
// transcription config at it.
func WithCredentialsFile() ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "credentials.json")
		if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
			b.t.Fatalf("write credentials: %v", err)
		}
		b.cfg.Transcription.CredentialsFile = path
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
