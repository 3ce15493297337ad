package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podtenuki/internal/config"
	"podtenuki/internal/services"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AUPHONIC_API_KEY",
		"OPENAI_API_KEY",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_CLOUD_PROJECT",
		"GOOGLE_STORAGE_BUCKET",
		"PODTENUKI_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "podtenuki", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Enhancement.PresetUUID != "xbyREqwaKxENW2n5V2y3mg" {
		t.Fatalf("unexpected default preset: %q", cfg.Enhancement.PresetUUID)
	}
	if cfg.Transcription.Language != "ja-JP" {
		t.Fatalf("unexpected default language: %q", cfg.Transcription.Language)
	}
	if cfg.Enhancement.PollIntervalSeconds != 30 || cfg.Enhancement.PollTimeoutSeconds != 3600 {
		t.Fatalf("unexpected poll defaults: %+v", cfg.Enhancement)
	}
	if cfg.Summarization.MaxTranscriptChars != 15000 {
		t.Fatalf("unexpected transcript budget: %d", cfg.Summarization.MaxTranscriptChars)
	}
	if cfg.Transcription.Bucket != "" {
		t.Fatalf("expected no bucket without project, got %q", cfg.Transcription.Bucket)
	}
}

func TestLoadUsesEnvironmentFallbacks(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUPHONIC_API_KEY", " auphonic-key ")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Enhancement.APIKey != "auphonic-key" {
		t.Fatalf("expected trimmed auphonic key, got %q", cfg.Enhancement.APIKey)
	}
	if cfg.Summarization.APIKey != "openai-key" {
		t.Fatalf("expected openai key from env, got %q", cfg.Summarization.APIKey)
	}
	if cfg.Transcription.Bucket != "my-project-speech-to-text" {
		t.Fatalf("expected derived bucket, got %q", cfg.Transcription.Bucket)
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	clearCredentialEnv(t)
	os.Unsetenv("GOOGLE_STORAGE_BUCKET")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "from-process")

	dir := t.TempDir()
	dotenv := filepath.Join(dir, "podtenuki.env")
	content := "OPENAI_API_KEY=from-file\nGOOGLE_STORAGE_BUCKET=episodes\n"
	if err := os.WriteFile(dotenv, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\ndotenv = \""+dotenv+"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("GOOGLE_STORAGE_BUCKET") })

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Summarization.APIKey != "from-process" {
		t.Fatalf("dotenv must not override process env, got %q", cfg.Summarization.APIKey)
	}
	if cfg.Transcription.Bucket != "episodes" {
		t.Fatalf("expected bucket from dotenv, got %q", cfg.Transcription.Bucket)
	}
}

func TestLoadCustomFileOverridesDefaults(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	custom := config.Default()
	custom.Transcription.Language = "en-us"
	custom.Transcription.Bucket = "gs://show-audio"
	custom.Enhancement.Status.ProcessingMarkers = []string{" Processing ", "processing", "Encoding"}
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Transcription.Language != "en-US" {
		t.Fatalf("expected canonical language tag, got %q", cfg.Transcription.Language)
	}
	if cfg.Transcription.Bucket != "show-audio" {
		t.Fatalf("expected gs:// prefix stripped, got %q", cfg.Transcription.Bucket)
	}
	markers := cfg.Enhancement.Status.ProcessingMarkers
	if len(markers) != 2 || markers[0] != "processing" || markers[1] != "encoding" {
		t.Fatalf("unexpected normalized markers: %v", markers)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := config.Default()
	cfg.Enhancement.PollIntervalSeconds = 0
	cfg.Transcription.Language = "not a tag!"
	cfg.Summarization.Temperature = 3
	cfg.Summarization.MaxTitleLength = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{
		"enhancement.poll_interval_seconds",
		"transcription.language",
		"summarization.temperature",
		"summarization.max_title_length",
	} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
}

func TestValidateRejectsIdenticalStatusCodes(t *testing.T) {
	cfg := config.Default()
	cfg.Enhancement.Status.ErrorCode = cfg.Enhancement.Status.DoneCode
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected status code error, got %v", err)
	}
}

func TestRequireStagesListsAllMissingCredentials(t *testing.T) {
	cfg := config.Default()
	err := cfg.RequireStages(config.AllStages())
	if err == nil {
		t.Fatal("expected missing credential error")
	}
	msg := err.Error()
	for _, env := range []string{
		"AUPHONIC_API_KEY",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_CLOUD_PROJECT",
		"GOOGLE_STORAGE_BUCKET",
		"OPENAI_API_KEY",
	} {
		if !strings.Contains(msg, env) {
			t.Fatalf("expected %s in %q", env, msg)
		}
	}
}

func TestRequireStagesSkipsDisabledStages(t *testing.T) {
	cfg := config.Default()
	cfg.Summarization.APIKey = "key"
	if err := cfg.RequireStages(config.Stages{Summarization: true}); err != nil {
		t.Fatalf("expected no error for summarization only, got %v", err)
	}
}

func TestRequireStagesChecksCredentialsFileExists(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	cfg.Transcription.ProjectID = "p"
	cfg.Transcription.Bucket = "b"
	err := cfg.RequireStages(config.Stages{Transcription: true})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing credentials file error, got %v", err)
	}

	creds := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(creds, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}
	cfg.Transcription.CredentialsFile = creds
	if err := cfg.RequireStages(config.Stages{Transcription: true}); err != nil {
		t.Fatalf("expected credentials to validate, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Pricing.Models["gpt-3.5-turbo"].OutputPer1K != 0.0015 {
		t.Fatalf("unexpected sample pricing: %+v", cfg.Pricing.Models)
	}
}

func TestMaskedRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Enhancement.APIKey = "abcdefghijklmnop"
	cfg.Summarization.APIKey = "short"
	masked := cfg.Masked()
	if masked.Enhancement.APIKey != "abcd****mnop" {
		t.Fatalf("unexpected masked key: %q", masked.Enhancement.APIKey)
	}
	if masked.Summarization.APIKey != "****" {
		t.Fatalf("unexpected masked short key: %q", masked.Summarization.APIKey)
	}
	if cfg.Enhancement.APIKey != "abcdefghijklmnop" {
		t.Fatal("Masked must not mutate the receiver")
	}
}
