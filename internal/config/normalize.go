package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEnhancement()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeSummarization()
	c.normalizePricing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEnhancement() {
	c.Enhancement.APIKey = strings.TrimSpace(c.Enhancement.APIKey)
	if c.Enhancement.APIKey == "" {
		c.Enhancement.APIKey = lookupEnv("AUPHONIC_API_KEY")
	}
	c.Enhancement.BaseURL = strings.TrimRight(strings.TrimSpace(c.Enhancement.BaseURL), "/")
	if c.Enhancement.BaseURL == "" {
		c.Enhancement.BaseURL = defaultEnhancementBaseURL
	}
	c.Enhancement.PresetUUID = strings.TrimSpace(c.Enhancement.PresetUUID)
	c.Enhancement.PresetName = strings.TrimSpace(c.Enhancement.PresetName)
	c.Enhancement.Status.ProcessingMarkers = normalizeMarkers(c.Enhancement.Status.ProcessingMarkers)
	c.Enhancement.Status.DoneMarkers = normalizeMarkers(c.Enhancement.Status.DoneMarkers)
	c.Enhancement.Status.ProcessingHints = normalizeMarkers(c.Enhancement.Status.ProcessingHints)
}

func (c *Config) normalizeTranscription() error {
	t := &c.Transcription
	t.CredentialsFile = strings.TrimSpace(t.CredentialsFile)
	if t.CredentialsFile == "" {
		t.CredentialsFile = lookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if t.CredentialsFile != "" {
		expanded, err := expandPath(t.CredentialsFile)
		if err != nil {
			return fmt.Errorf("transcription.credentials_file: %w", err)
		}
		t.CredentialsFile = expanded
	}
	t.ProjectID = strings.TrimSpace(t.ProjectID)
	if t.ProjectID == "" {
		t.ProjectID = lookupEnv("GOOGLE_CLOUD_PROJECT")
	}
	t.Bucket = strings.TrimPrefix(strings.TrimSpace(t.Bucket), "gs://")
	if t.Bucket == "" {
		t.Bucket = lookupEnv("GOOGLE_STORAGE_BUCKET")
	}
	if t.Bucket == "" {
		t.Bucket = DefaultBucket(t.ProjectID)
	}
	t.Language = strings.TrimSpace(t.Language)
	if t.Language == "" {
		t.Language = defaultLanguage
	}
	// Canonical form (ja-jp -> ja-JP); invalid tags are reported by Validate.
	if tag, err := language.Parse(t.Language); err == nil {
		t.Language = tag.String()
	}
	if t.SampleRateHertz <= 0 {
		t.SampleRateHertz = defaultSampleRateHertz
	}
	return nil
}

func (c *Config) normalizeSummarization() {
	s := &c.Summarization
	s.APIKey = strings.TrimSpace(s.APIKey)
	if s.APIKey == "" {
		s.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	if s.BaseURL == "" {
		s.BaseURL = defaultSummarizeBaseURL
	}
	s.Model = strings.TrimSpace(s.Model)
	if s.Model == "" {
		s.Model = defaultSummarizeModel
	}
}

func (c *Config) normalizePricing() {
	c.Pricing.FallbackModel = strings.TrimSpace(c.Pricing.FallbackModel)
	if c.Pricing.FallbackModel == "" {
		c.Pricing.FallbackModel = defaultFallbackModel
	}
	if len(c.Pricing.Models) == 0 {
		c.Pricing.Models = defaultModelPrices()
	}
	normalized := make(map[string]ModelPrice, len(c.Pricing.Models))
	for model, price := range c.Pricing.Models {
		key := strings.ToLower(strings.TrimSpace(model))
		if key == "" {
			continue
		}
		normalized[key] = price
	}
	c.Pricing.Models = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level := lookupEnv("PODTENUKI_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeMarkers(markers []string) []string {
	out := make([]string, 0, len(markers))
	seen := make(map[string]struct{}, len(markers))
	for _, marker := range markers {
		normalized := strings.ToLower(strings.TrimSpace(marker))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
