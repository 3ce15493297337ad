package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and log directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	// DotEnv is loaded before environment fallbacks are resolved.
	DotEnv string `toml:"dotenv"`
}

// StatusRules tunes how enhancement job status payloads are classified.
type StatusRules struct {
	DoneCode          int      `toml:"done_code"`
	ErrorCode         int      `toml:"error_code"`
	ProcessingMarkers []string `toml:"processing_markers"`
	DoneMarkers       []string `toml:"done_markers"`
	// ProcessingHints keep an error code with empty error fields in progress.
	ProcessingHints []string `toml:"processing_hints"`
}

// Enhancement contains configuration for the Auphonic enhancement service.
type Enhancement struct {
	APIKey                string      `toml:"api_key"`
	BaseURL               string      `toml:"base_url"`
	PresetUUID            string      `toml:"preset_uuid"`
	PresetName            string      `toml:"preset_name"`
	RequestTimeoutSeconds int         `toml:"request_timeout_seconds"`
	PollIntervalSeconds   int         `toml:"poll_interval_seconds"`
	PollTimeoutSeconds    int         `toml:"poll_timeout_seconds"`
	ResultPollInterval    int         `toml:"result_poll_interval_seconds"`
	ResultPollTimeout     int         `toml:"result_poll_timeout_seconds"`
	SettleSeconds         int         `toml:"settle_seconds"`
	ExtendedSettleSeconds int         `toml:"extended_settle_seconds"`
	RetrySettleSeconds    int         `toml:"retry_settle_seconds"`
	RetryUpload           bool        `toml:"retry_upload"`
	Status                StatusRules `toml:"status"`
}

// Transcription contains configuration for Google Cloud Speech-to-Text.
type Transcription struct {
	CredentialsFile string `toml:"credentials_file"`
	ProjectID       string `toml:"project_id"`
	Bucket          string `toml:"bucket"`
	Language        string `toml:"language"`
	SampleRateHertz int    `toml:"sample_rate_hertz"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Summarization contains settings for the chat-completion show-notes writer.
type Summarization struct {
	APIKey             string  `toml:"api_key"`
	BaseURL            string  `toml:"base_url"`
	Model              string  `toml:"model"`
	Temperature        float64 `toml:"temperature"`
	MaxTokens          int     `toml:"max_tokens"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	MaxTranscriptChars int     `toml:"max_transcript_chars"`
	MaxTitleLength     int     `toml:"max_title_length"`
}

// ModelPrice is a per-1K-token price pair.
type ModelPrice struct {
	InputPer1K  float64 `toml:"input_per_1k"`
	OutputPer1K float64 `toml:"output_per_1k"`
}

// Pricing contains the cost estimation tables.
type Pricing struct {
	SpeechPerMinute      float64               `toml:"speech_per_minute"`
	EnhancementPerMinute float64               `toml:"enhancement_per_minute"`
	FallbackModel        string                `toml:"fallback_model"`
	Models               map[string]ModelPrice `toml:"models"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podtenuki.
//
// Configuration sections by subsystem:
//   - Paths: output directory, log directory, dotenv file
//   - Enhancement: Auphonic credentials, preset, and wait/poll timings
//   - Transcription: Google Cloud project, bucket, and language
//   - Summarization: chat-completion endpoint and prompt limits
//   - Pricing: cost estimation tables
//   - Tools: ffmpeg/ffprobe binaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Enhancement   Enhancement   `toml:"enhancement"`
	Transcription Transcription `toml:"transcription"`
	Summarization Summarization `toml:"summarization"`
	Pricing       Pricing       `toml:"pricing"`
	Tools         Tools         `toml:"tools"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podtenuki/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults and environment variables are used instead. Stage
// credentials are not checked here, see RequireStages.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := LoadDotEnv(cfg.Paths.DotEnv); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ".env"
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat dotenv: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("load dotenv %s: %w", expanded, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podtenuki.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// FFmpegBinary returns the ffmpeg executable used for concatenation.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFmpeg) == "" {
		return defaultFFmpeg
	}
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return defaultFFprobe
	}
	return c.Tools.FFprobe
}

// Seconds converts an integer seconds setting into a duration.
func Seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

// DefaultBucket returns the bucket name derived from the project id when no
// bucket is configured.
func DefaultBucket(projectID string) string {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return projectID + "-speech-to-text"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Masked returns a copy of the config with credentials redacted for display.
func (c *Config) Masked() Config {
	if c == nil {
		return Config{}
	}
	clone := *c
	clone.Enhancement.APIKey = mask(clone.Enhancement.APIKey)
	clone.Summarization.APIKey = mask(clone.Summarization.APIKey)
	return clone
}

func mask(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****" + secret[len(secret)-4:]
	}
}
