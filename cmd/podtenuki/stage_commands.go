package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"podtenuki/internal/config"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/media/ffprobe"
	"podtenuki/internal/services"
	"podtenuki/internal/services/speech"
	"podtenuki/internal/shownotes"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var presetUUID, presetName, outputDir string
	cmd := &cobra.Command{
		Use:   "convert <audio file>",
		Short: "Enhance one audio file with Auphonic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireStages(config.Stages{Enhancement: true}); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "credentials", "missing settings", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd.Context())

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			artifact, err := audio.Describe(runCtx, ffprobe.NewProber(cfg.FFprobeBinary()), path)
			if err != nil {
				return err
			}
			dest := firstNonEmpty(outputDir, cfg.Paths.OutputDir, filepath.Dir(path))
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "output dir", "create output directory", err)
			}

			client := ctx.newEnhancer(cfg, logger)
			presetID, err := client.ResolvePreset(runCtx,
				firstNonEmpty(presetUUID, cfg.Enhancement.PresetUUID),
				firstNonEmpty(presetName, cfg.Enhancement.PresetName))
			if err != nil {
				return err
			}
			result, err := client.Process(runCtx, artifact, presetID, dest)
			if err != nil {
				return err
			}
			if len(result.Outputs) == 0 {
				return services.Wrap(services.ErrExternalTool, "enhancement", "download", "no processed files were returned", nil)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "CONVERSION COMPLETE")
			for _, output := range result.Outputs {
				fmt.Fprintf(out, "Processed audio file: %s\n", output)
			}
			fmt.Fprintln(out)
			renderUsage(out, ctx.usageTracker().Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&presetUUID, "preset-uuid", "", "UUID of the Auphonic preset to use")
	cmd.Flags().StringVar(&presetName, "preset-name", "", "Name of the Auphonic preset to use (alternative to --preset-uuid)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to save output files (default: same directory as input file)")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var outputFile, language string
	cmd := &cobra.Command{
		Use:   "transcribe <audio file>",
		Short: "Transcribe one audio file with Google Cloud Speech-to-Text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if lang := strings.TrimSpace(language); lang != "" {
				cfg.Transcription.Language = lang
			}
			if err := cfg.RequireStages(config.Stages{Transcription: true}); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "credentials", "missing settings", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd.Context())

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			artifact, err := audio.Describe(runCtx, ffprobe.NewProber(cfg.FFprobeBinary()), path)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(outputFile)
			if target == "" {
				target = speech.TranscriptPath(path, cfg.Paths.OutputDir)
			}

			client, closeFn, err := ctx.newTranscriber(runCtx, &cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			transcript, err := client.Transcribe(runCtx, artifact, cfg.Transcription.Bucket)
			if err != nil {
				return err
			}
			if err := speech.SaveTranscript(transcript.Text, target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "TRANSCRIPTION COMPLETE")
			fmt.Fprintf(out, "Transcript file: %s\n", target)
			fmt.Fprintln(out)
			renderUsage(out, ctx.usageTracker().Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Path to save the transcription (default: <stem>.txt)")
	cmd.Flags().StringVar(&language, "language", "", "Language code for transcription (default from config: ja-JP)")
	return cmd
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var outputFile string
	var maxTitle int
	cmd := &cobra.Command{
		Use:   "summarize <transcript file>",
		Short: "Generate a podcast title and description from a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if maxTitle > 0 {
				cfg.Summarization.MaxTitleLength = maxTitle
			}
			if err := cfg.RequireStages(config.Stages{Summarization: true}); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "credentials", "missing settings", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd.Context())

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return services.Wrap(services.ErrValidation, "summarization", "read transcript", fmt.Sprintf("transcript file not found: %s", path), err)
			}
			target := strings.TrimSpace(outputFile)
			if target == "" {
				target = shownotes.SummaryPath(path, cfg.Paths.OutputDir)
			}

			notes, err := ctx.newNotesGenerator(&cfg, logger).Generate(runCtx, string(data))
			if err != nil {
				return err
			}
			if err := shownotes.Save(notes, target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "SUMMARIZATION COMPLETE")
			fmt.Fprintf(out, "Podcast title: %s\n", notes.Title)
			fmt.Fprintf(out, "Summary file: %s\n", target)
			fmt.Fprintln(out)
			renderUsage(out, ctx.usageTracker().Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Path to save the summary (default: <stem>.summary.md)")
	cmd.Flags().IntVar(&maxTitle, "max-title-length", 0, "Maximum length of the generated title (default from config: 100)")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
