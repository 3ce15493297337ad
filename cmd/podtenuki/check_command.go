package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"podtenuki/internal/config"
	"podtenuki/internal/episode"
	"podtenuki/internal/logging"
	"podtenuki/internal/pipeline"
	"podtenuki/internal/preflight"
	"podtenuki/internal/services/speech"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify tools, directories, and service credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd.Context())

			var probes preflight.Probes
			if cfg.Transcription.CredentialsFile != "" && cfg.Transcription.Bucket != "" {
				backend, err := speech.NewGoogleBackend(runCtx, cfg.Transcription.CredentialsFile)
				if err != nil {
					logger.Warn("google clients unavailable; bucket check skipped", logging.Error(err))
				} else {
					defer backend.Close()
					probes.Storage = backend.Store()
				}
			}

			results := preflight.RunAll(runCtx, cfg, probes)
			results = append(results, stageReadiness(runCtx, ctx, cfg, logger)...)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChecks(results))
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

// stageReadiness wires the pipeline with every stage whose credentials are
// present and reports each handler's health. Stages without credentials are
// listed as skipped; the credential checks above already explain why.
func stageReadiness(runCtx context.Context, ctx *commandContext, cfg *config.Config, logger *slog.Logger) []preflight.Result {
	stages := config.Stages{
		Enhancement:   cfg.RequireStages(config.Stages{Enhancement: true}) == nil,
		Transcription: cfg.RequireStages(config.Stages{Transcription: true}) == nil,
		Summarization: cfg.RequireStages(config.Stages{Summarization: true}) == nil,
	}
	enabled := map[string]bool{
		episode.StageConcat:        true,
		episode.StageEnhancement:   stages.Enhancement,
		episode.StageTranscription: stages.Transcription,
		episode.StageSummarization: stages.Summarization,
	}
	deps, cleanup, err := ctx.pipelineDependencies(runCtx, cfg, stages, logger)
	if err != nil {
		return []preflight.Result{{Name: "Pipeline", Detail: err.Error()}}
	}
	defer cleanup()

	health := pipeline.New(deps).Health(runCtx, pipeline.Options{Bucket: cfg.Transcription.Bucket})
	results := make([]preflight.Result, 0, len(health))
	for _, h := range health {
		result := preflight.Result{Name: "Stage " + h.Name, Passed: h.Ready, Detail: h.Detail}
		if !h.Ready && !enabled[h.Name] {
			result.Skipped = true
			result.Detail = "credentials missing"
		}
		results = append(results, result)
	}
	return results
}

func renderChecks(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, checkStatus(r), r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}

func checkStatus(r preflight.Result) string {
	switch {
	case r.Passed:
		return "ok"
	case r.Skipped:
		return "skipped"
	default:
		return "FAILED"
	}
}
