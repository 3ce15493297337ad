package config

const (
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultFFmpeg                = "ffmpeg"
	defaultFFprobe               = "ffprobe"
	defaultEnhancementBaseURL    = "https://auphonic.com/api"
	defaultPresetUUID            = "xbyREqwaKxENW2n5V2y3mg"
	defaultRequestTimeoutSeconds = 300
	defaultPollIntervalSeconds   = 30
	defaultPollTimeoutSeconds    = 3600
	defaultResultPollInterval    = 10
	defaultResultPollTimeout     = 300
	defaultSettleSeconds         = 60
	defaultExtendedSettleSeconds = 120
	defaultRetrySettleSeconds    = 60
	defaultDoneCode              = 3
	defaultErrorCode             = 4
	defaultLanguage              = "ja-JP"
	defaultSampleRateHertz       = 16000
	defaultTranscribeTimeout     = 1800
	defaultSummarizeBaseURL      = "https://api.openai.com/v1/chat/completions"
	defaultSummarizeModel        = "gpt-3.5-turbo"
	defaultTemperature           = 0.7
	defaultMaxTokens             = 1024
	defaultSummarizeTimeout      = 120
	defaultMaxTranscriptChars    = 15000
	defaultMaxTitleLength        = 100
	defaultSpeechPerMinute       = 0.024
	defaultFallbackModel         = "gpt-4o"
)

func defaultModelPrices() map[string]ModelPrice {
	return map[string]ModelPrice{
		"gpt-4o":        {InputPer1K: 0.01, OutputPer1K: 0.03},
		"gpt-4":         {InputPer1K: 0.03, OutputPer1K: 0.06},
		"gpt-4-turbo":   {InputPer1K: 0.01, OutputPer1K: 0.03},
		"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DotEnv: ".env",
		},
		Enhancement: Enhancement{
			BaseURL:               defaultEnhancementBaseURL,
			PresetUUID:            defaultPresetUUID,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			PollIntervalSeconds:   defaultPollIntervalSeconds,
			PollTimeoutSeconds:    defaultPollTimeoutSeconds,
			ResultPollInterval:    defaultResultPollInterval,
			ResultPollTimeout:     defaultResultPollTimeout,
			SettleSeconds:         defaultSettleSeconds,
			ExtendedSettleSeconds: defaultExtendedSettleSeconds,
			RetrySettleSeconds:    defaultRetrySettleSeconds,
			RetryUpload:           true,
			Status: StatusRules{
				DoneCode:          defaultDoneCode,
				ErrorCode:         defaultErrorCode,
				ProcessingMarkers: []string{"processing"},
				DoneMarkers:       []string{"completed", "done"},
				ProcessingHints:   []string{"process", "progress", "waiting", "encoding"},
			},
		},
		Transcription: Transcription{
			Language:        defaultLanguage,
			SampleRateHertz: defaultSampleRateHertz,
			TimeoutSeconds:  defaultTranscribeTimeout,
		},
		Summarization: Summarization{
			BaseURL:            defaultSummarizeBaseURL,
			Model:              defaultSummarizeModel,
			Temperature:        defaultTemperature,
			MaxTokens:          defaultMaxTokens,
			TimeoutSeconds:     defaultSummarizeTimeout,
			MaxTranscriptChars: defaultMaxTranscriptChars,
			MaxTitleLength:     defaultMaxTitleLength,
		},
		Pricing: Pricing{
			SpeechPerMinute: defaultSpeechPerMinute,
			FallbackModel:   defaultFallbackModel,
			Models:          defaultModelPrices(),
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
