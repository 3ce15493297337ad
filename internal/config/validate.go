package config

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"podtenuki/internal/services"
)

// Stages selects which pipeline stages must have usable credentials.
type Stages struct {
	Enhancement   bool
	Transcription bool
	Summarization bool
}

// AllStages requires credentials for every stage.
func AllStages() Stages {
	return Stages{Enhancement: true, Transcription: true, Summarization: true}
}

// Validate ensures the configuration is internally consistent. Every problem is
// reported in one joined error.
func (c *Config) Validate() error {
	var problems []error
	problems = append(problems, c.validateEnhancement()...)
	problems = append(problems, c.validateTranscription()...)
	problems = append(problems, c.validateSummarization()...)
	problems = append(problems, c.validatePricing()...)
	return joinProblems(problems)
}

// RequireStages verifies that credentials needed by the selected stages are
// present. All missing settings are reported together so the operator can fix
// them in one pass.
func (c *Config) RequireStages(stages Stages) error {
	var problems []error
	if stages.Enhancement {
		if c.Enhancement.APIKey == "" {
			problems = append(problems, missing("enhancement.api_key", "AUPHONIC_API_KEY"))
		}
	}
	if stages.Transcription {
		t := c.Transcription
		switch {
		case t.CredentialsFile == "":
			problems = append(problems, missing("transcription.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS"))
		default:
			if info, err := os.Stat(t.CredentialsFile); err != nil || info.IsDir() {
				problems = append(problems, fmt.Errorf("transcription.credentials_file %q does not exist or is not a file", t.CredentialsFile))
			}
		}
		if t.ProjectID == "" {
			problems = append(problems, missing("transcription.project_id", "GOOGLE_CLOUD_PROJECT"))
		}
		if t.Bucket == "" {
			problems = append(problems, missing("transcription.bucket", "GOOGLE_STORAGE_BUCKET"))
		}
	}
	if stages.Summarization {
		if c.Summarization.APIKey == "" {
			problems = append(problems, missing("summarization.api_key", "OPENAI_API_KEY"))
		}
	}
	return joinProblems(problems)
}

func (c *Config) validateEnhancement() []error {
	e := c.Enhancement
	problems := positive(map[string]int{
		"enhancement.request_timeout_seconds":      e.RequestTimeoutSeconds,
		"enhancement.poll_interval_seconds":        e.PollIntervalSeconds,
		"enhancement.poll_timeout_seconds":         e.PollTimeoutSeconds,
		"enhancement.result_poll_interval_seconds": e.ResultPollInterval,
		"enhancement.result_poll_timeout_seconds":  e.ResultPollTimeout,
	})
	problems = append(problems, nonNegative(map[string]int{
		"enhancement.settle_seconds":          e.SettleSeconds,
		"enhancement.extended_settle_seconds": e.ExtendedSettleSeconds,
		"enhancement.retry_settle_seconds":    e.RetrySettleSeconds,
	})...)
	if e.PollTimeoutSeconds > 0 && e.PollIntervalSeconds > e.PollTimeoutSeconds {
		problems = append(problems, errors.New("enhancement.poll_interval_seconds must not exceed enhancement.poll_timeout_seconds"))
	}
	if e.Status.DoneCode == e.Status.ErrorCode {
		problems = append(problems, errors.New("enhancement.status.done_code and enhancement.status.error_code must differ"))
	}
	if len(e.Status.ProcessingMarkers) == 0 {
		problems = append(problems, errors.New("enhancement.status.processing_markers must include at least one marker"))
	}
	if len(e.Status.DoneMarkers) == 0 {
		problems = append(problems, errors.New("enhancement.status.done_markers must include at least one marker"))
	}
	if !strings.HasPrefix(e.BaseURL, "http://") && !strings.HasPrefix(e.BaseURL, "https://") {
		problems = append(problems, fmt.Errorf("enhancement.base_url %q must be an http(s) URL", e.BaseURL))
	}
	return problems
}

func (c *Config) validateTranscription() []error {
	t := c.Transcription
	var problems []error
	if _, err := language.Parse(t.Language); err != nil {
		problems = append(problems, fmt.Errorf("transcription.language %q is not a valid BCP-47 tag: %w", t.Language, err))
	}
	if t.TimeoutSeconds <= 0 {
		problems = append(problems, errors.New("transcription.timeout_seconds must be positive"))
	}
	if t.SampleRateHertz < 8000 || t.SampleRateHertz > 48000 {
		problems = append(problems, errors.New("transcription.sample_rate_hertz must be between 8000 and 48000"))
	}
	return problems
}

func (c *Config) validateSummarization() []error {
	s := c.Summarization
	problems := positive(map[string]int{
		"summarization.max_tokens":           s.MaxTokens,
		"summarization.timeout_seconds":      s.TimeoutSeconds,
		"summarization.max_transcript_chars": s.MaxTranscriptChars,
	})
	if s.Temperature < 0 || s.Temperature > 2 || math.IsNaN(s.Temperature) {
		problems = append(problems, errors.New("summarization.temperature must be between 0 and 2"))
	}
	if s.MaxTitleLength < 4 {
		problems = append(problems, errors.New("summarization.max_title_length must be at least 4"))
	}
	return problems
}

func (c *Config) validatePricing() []error {
	var problems []error
	if c.Pricing.SpeechPerMinute < 0 {
		problems = append(problems, errors.New("pricing.speech_per_minute must be >= 0"))
	}
	if c.Pricing.EnhancementPerMinute < 0 {
		problems = append(problems, errors.New("pricing.enhancement_per_minute must be >= 0"))
	}
	for model, price := range c.Pricing.Models {
		if price.InputPer1K < 0 || price.OutputPer1K < 0 {
			problems = append(problems, fmt.Errorf("pricing.models.%s prices must be >= 0", model))
		}
	}
	if _, ok := c.Pricing.Models[strings.ToLower(c.Pricing.FallbackModel)]; !ok {
		problems = append(problems, fmt.Errorf("pricing.fallback_model %q has no entry in pricing.models", c.Pricing.FallbackModel))
	}
	return problems
}

func missing(key, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/podtenuki/config.toml"
	}
	return fmt.Errorf("%s is required. Set %s or edit %s (create with 'podtenuki config init')", key, env, defaultPath)
}

func positive(values map[string]int) []error {
	var problems []error
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			problems = append(problems, fmt.Errorf("%s must be positive", key))
		}
	}
	return problems
}

func nonNegative(values map[string]int) []error {
	var problems []error
	for _, key := range sortedKeys(values) {
		if values[key] < 0 {
			problems = append(problems, fmt.Errorf("%s must be >= 0", key))
		}
	}
	return problems
}

func joinProblems(problems []error) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", services.ErrConfiguration, errors.Join(problems...))
}

func sortedKeys(values map[string]int) []string {
	return slices.Sorted(maps.Keys(values))
}
