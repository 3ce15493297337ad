package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podtenuki/internal/config"
	"podtenuki/internal/pipeline"
	"podtenuki/internal/services"
)

type processFlags struct {
	outputDir         string
	outputName        string
	presetUUID        string
	presetName        string
	language          string
	skipConversion    bool
	skipTranscription bool
	skipSummarization bool
}

func (f *processFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.outputDir, "output-dir", "", "Directory to save output files (default: same directory as input file)")
	flags.StringVar(&f.outputName, "output-name", "", "Name for the output file when concatenating multiple files")
	flags.StringVar(&f.presetUUID, "preset-uuid", "", "UUID of the Auphonic preset to use (default from config: xbyREqwaKxENW2n5V2y3mg)")
	flags.StringVar(&f.presetName, "preset-name", "", "Name of the Auphonic preset to use (alternative to --preset-uuid)")
	flags.StringVar(&f.language, "language", "", "Language code for transcription (default from config: ja-JP)")
	flags.BoolVar(&f.skipConversion, "skip-conversion", false, "Skip audio conversion with Auphonic")
	flags.BoolVar(&f.skipTranscription, "skip-transcription", false, "Skip audio transcription")
	flags.BoolVar(&f.skipSummarization, "skip-summarization", false, "Skip transcript summarization")
}

func (f *processFlags) stages() config.Stages {
	return config.Stages{
		Enhancement:   !f.skipConversion,
		Transcription: !f.skipTranscription,
		Summarization: !f.skipSummarization,
	}
}

// apply copies flag overrides onto a private copy of cfg.
func (f *processFlags) apply(cfg *config.Config) (*config.Config, error) {
	clone := *cfg
	if dir := strings.TrimSpace(f.outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "cli", "output dir", "resolve --output-dir", err)
		}
		clone.Paths.OutputDir = expanded
	}
	if uuid := strings.TrimSpace(f.presetUUID); uuid != "" {
		clone.Enhancement.PresetUUID = uuid
	}
	if name := strings.TrimSpace(f.presetName); name != "" {
		clone.Enhancement.PresetName = name
	}
	if lang := strings.TrimSpace(f.language); lang != "" {
		clone.Transcription.Language = lang
	}
	return &clone, nil
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	flags := &processFlags{}
	cmd := &cobra.Command{
		Use:   "process <audio files...>",
		Short: "Run the full pipeline: concatenate, enhance, transcribe, summarize",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, ctx, flags, args)
		},
	}
	flags.bind(cmd)
	return cmd
}

func runProcess(cmd *cobra.Command, ctx *commandContext, flags *processFlags, args []string) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := flags.apply(base)
	if err != nil {
		return err
	}
	stages := flags.stages()
	if err := cfg.RequireStages(stages); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "credentials", "missing settings", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	runCtx := ctx.runContext(cmd.Context())
	deps, cleanup, err := ctx.pipelineDependencies(runCtx, cfg, stages, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	inputs := make([]string, 0, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return services.Wrap(services.ErrValidation, "cli", "inputs", fmt.Sprintf("resolve %q", arg), err)
		}
		inputs = append(inputs, path)
	}

	report, runErr := pipeline.New(deps).Run(runCtx, pipeline.Options{
		Inputs:            inputs,
		OutputDir:         cfg.Paths.OutputDir,
		OutputName:        flags.outputName,
		PresetUUID:        cfg.Enhancement.PresetUUID,
		PresetName:        cfg.Enhancement.PresetName,
		Bucket:            cfg.Transcription.Bucket,
		SkipEnhancement:   flags.skipConversion,
		SkipTranscription: flags.skipTranscription,
		SkipSummarization: flags.skipSummarization,
	})
	renderReport(cmd.OutOrStdout(), report)
	return runErr
}
