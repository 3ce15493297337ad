package main

import (
	"context"
	"log/slog"

	"podtenuki/internal/config"
	"podtenuki/internal/deps"
	"podtenuki/internal/logging"
	"podtenuki/internal/media/concat"
	"podtenuki/internal/media/ffprobe"
	"podtenuki/internal/pipeline"
	"podtenuki/internal/services/auphonic"
	"podtenuki/internal/services/llm"
	"podtenuki/internal/services/speech"
	"podtenuki/internal/shownotes"
)

func (c *commandContext) newEnhancer(cfg *config.Config, logger *slog.Logger) *auphonic.Client {
	e := cfg.Enhancement
	opts := []auphonic.Option{
		auphonic.WithLogger(logger),
		auphonic.WithUsage(c.usageTracker()),
		auphonic.WithClassifier(auphonic.ClassifierFromConfig(e.Status)),
		auphonic.WithTiming(timingFromConfig(e)),
		auphonic.WithProgress(c.progressWriter),
	}
	if !e.RetryUpload {
		opts = append(opts, auphonic.WithUploadRetry(nil))
	}
	return auphonic.NewClient(auphonic.Config{
		APIKey:         e.APIKey,
		BaseURL:        e.BaseURL,
		TimeoutSeconds: e.RequestTimeoutSeconds,
	}, opts...)
}

func timingFromConfig(e config.Enhancement) auphonic.Timing {
	timing := auphonic.DefaultTiming()
	if d := config.Seconds(e.SettleSeconds); d > 0 {
		timing.Settle = d
	}
	if d := config.Seconds(e.ExtendedSettleSeconds); d > 0 {
		timing.ExtendedSettle = d
	}
	if d := config.Seconds(e.RetrySettleSeconds); d > 0 {
		timing.RetrySettle = d
	}
	if d := config.Seconds(e.PollIntervalSeconds); d > 0 {
		timing.PollInterval = d
	}
	if d := config.Seconds(e.PollTimeoutSeconds); d > 0 {
		timing.PollTimeout = d
	}
	if d := config.Seconds(e.ResultPollInterval); d > 0 {
		timing.ResultPollInterval = d
	}
	if d := config.Seconds(e.ResultPollTimeout); d > 0 {
		timing.ResultPollTimeout = d
	}
	return timing
}

// newTranscriber dials Google Cloud. The returned close func releases both
// SDK clients.
func (c *commandContext) newTranscriber(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*speech.Client, func() error, error) {
	backend, err := speech.NewGoogleBackend(ctx, cfg.Transcription.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}
	t := cfg.Transcription
	client := speech.NewClient(backend.Store(), backend.Recognizer(), speech.Config{
		Language:        t.Language,
		SampleRateHertz: t.SampleRateHertz,
		Timeout:         config.Seconds(t.TimeoutSeconds),
	},
		speech.WithLogger(logger),
		speech.WithUsage(c.usageTracker()),
		speech.WithProgress(c.progressWriter),
	)
	return client, backend.Close, nil
}

func (c *commandContext) newLLM(cfg *config.Config, logger *slog.Logger) *llm.Client {
	s := cfg.Summarization
	return llm.NewClient(llm.Config{
		APIKey:         s.APIKey,
		BaseURL:        s.BaseURL,
		Model:          s.Model,
		TimeoutSeconds: s.TimeoutSeconds,
	},
		llm.WithLogger(logger),
		llm.WithUsage(c.usageTracker()),
	)
}

func (c *commandContext) newNotesGenerator(cfg *config.Config, logger *slog.Logger) *shownotes.Generator {
	s := cfg.Summarization
	return shownotes.NewGenerator(c.newLLM(cfg, logger), shownotes.Options{
		Temperature:        s.Temperature,
		MaxTokens:          s.MaxTokens,
		MaxTranscriptChars: s.MaxTranscriptChars,
		MaxTitleLength:     s.MaxTitleLength,
		Language:           cfg.Transcription.Language,
	}, logger)
}

// pipelineDependencies builds only the backends the selected stages need.
func (c *commandContext) pipelineDependencies(ctx context.Context, cfg *config.Config, stages config.Stages, logger *slog.Logger) (pipeline.Dependencies, func(), error) {
	wired := pipeline.Dependencies{
		Concat: concat.New(deps.ResolveTool(cfg.FFmpegBinary()), logger),
		Probe:  ffprobe.NewProber(deps.ResolveTool(cfg.FFprobeBinary())),
		Usage:  c.usageTracker(),
		Logger: logger,
	}
	cleanup := func() {}
	if stages.Enhancement {
		wired.Enhancer = c.newEnhancer(cfg, logger)
	}
	if stages.Transcription {
		client, closeFn, err := c.newTranscriber(ctx, cfg, logger)
		if err != nil {
			return pipeline.Dependencies{}, cleanup, err
		}
		wired.Transcriber = client
		cleanup = func() {
			if err := closeFn(); err != nil {
				logger.Debug("close google clients", logging.Error(err))
			}
		}
	}
	if stages.Summarization {
		wired.Notes = c.newNotesGenerator(cfg, logger)
	}
	return wired, cleanup, nil
}
