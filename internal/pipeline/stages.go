package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podtenuki/internal/episode"
	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/media/concat"
	"podtenuki/internal/services"
	"podtenuki/internal/services/speech"
	"podtenuki/internal/shownotes"
	"podtenuki/internal/stage"
)

type loggerSlot struct {
	logger *slog.Logger
}

func (s *loggerSlot) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *loggerSlot) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

type concatStage struct {
	loggerSlot
	p    *Pipeline
	opts Options
}

func (s *concatStage) Name() string { return episode.StageConcat }

func (s *concatStage) Prepare(_ context.Context, ep *episode.Episode) error {
	switch {
	case len(ep.Inputs) < 2:
		return stage.Skip("single input")
	case !concat.ShouldConcatenate(ep.Inputs):
		logging.WarnWithContext(s.log(), "multiple inputs are not all WAV; using the first", "mixed_inputs",
			logging.Int("input_count", len(ep.Inputs)),
			logging.String("selected", ep.Inputs[0]),
			logging.String(logging.FieldImpact, "remaining inputs are ignored"),
			logging.String(logging.FieldErrorHint, "pass only WAV files to concatenate them"),
		)
		return stage.Skip("mixed input formats")
	case s.p.deps.Concat == nil:
		return unavailable(s.Name(), "ffmpeg concatenation")
	}
	return nil
}

func (s *concatStage) Execute(ctx context.Context, ep *episode.Episode) error {
	output, err := s.p.deps.Concat.Concatenate(ctx, ep.Inputs, concat.Options{
		OutputDir:  ep.OutputDir,
		OutputName: s.opts.OutputName,
	})
	if err != nil {
		return err
	}
	ep.SetSource(output)
	ep.Original = output
	ep.Record(episode.Outcome{Stage: s.Name(), Status: episode.StatusCompleted, Outputs: []string{output}})
	return nil
}

func (s *concatStage) HealthCheck(context.Context) stage.Health {
	if s.p.deps.Concat == nil {
		return stage.Unhealthy(s.Name(), "concatenator not configured")
	}
	return stage.Healthy(s.Name())
}

type enhanceStage struct {
	loggerSlot
	p    *Pipeline
	opts Options
}

func (s *enhanceStage) Name() string { return episode.StageEnhancement }

func (s *enhanceStage) Prepare(ctx context.Context, ep *episode.Episode) error {
	if s.p.deps.Enhancer == nil {
		return unavailable(s.Name(), "enhancement client")
	}
	_, err := s.p.describe(ctx, ep)
	return err
}

// Execute never fails on remote errors; the original audio continues.
func (s *enhanceStage) Execute(ctx context.Context, ep *episode.Episode) error {
	presetID, err := s.p.deps.Enhancer.ResolvePreset(ctx, s.opts.PresetUUID, s.opts.PresetName)
	if err != nil {
		return s.fallback(ctx, ep, err)
	}
	destDir := ep.OutputDir
	if destDir == "" {
		destDir = filepath.Dir(ep.Source)
	}
	result, err := s.p.deps.Enhancer.Process(ctx, ep.Artifact, presetID, destDir)
	if err != nil {
		return s.fallback(ctx, ep, err)
	}
	if len(result.Outputs) == 0 {
		return s.fallback(ctx, ep, errors.New("no processed files were returned"))
	}
	ep.EnhancedFiles = append([]string(nil), result.Outputs...)
	ep.SetSource(primaryAudio(result.Outputs))
	ep.Record(episode.Outcome{Stage: s.Name(), Status: episode.StatusCompleted, Outputs: ep.EnhancedFiles})
	return nil
}

func (s *enhanceStage) fallback(ctx context.Context, ep *episode.Episode, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	logging.WarnWithContext(s.log(), "enhancement failed; using original audio", logging.EventEnhancementFallback,
		logging.Error(cause),
		logging.String("source_file", ep.Source),
		logging.String(logging.FieldImpact, "downstream stages use unprocessed audio"),
		logging.String(logging.FieldErrorHint, "check the Auphonic production in the web dashboard"),
	)
	ep.Record(episode.Outcome{Stage: s.Name(), Status: episode.StatusFallback, Detail: cause.Error()})
	return nil
}

func (s *enhanceStage) HealthCheck(context.Context) stage.Health {
	if s.p.deps.Enhancer == nil {
		return stage.Unhealthy(s.Name(), "enhancement client not configured")
	}
	return stage.Healthy(s.Name())
}

// primaryAudio picks the first output with an audio extension.
func primaryAudio(outputs []string) string {
	for _, output := range outputs {
		if strings.HasPrefix(audio.ContentTypeFor(output), "audio/") {
			return output
		}
	}
	return outputs[0]
}

type transcribeStage struct {
	loggerSlot
	p    *Pipeline
	opts Options
}

func (s *transcribeStage) Name() string { return episode.StageTranscription }

func (s *transcribeStage) Prepare(ctx context.Context, ep *episode.Episode) error {
	if s.p.deps.Transcriber == nil {
		return unavailable(s.Name(), "speech client")
	}
	_, err := s.p.describe(ctx, ep)
	return err
}

func (s *transcribeStage) Execute(ctx context.Context, ep *episode.Episode) error {
	transcript, err := s.p.deps.Transcriber.Transcribe(ctx, ep.Artifact, s.opts.Bucket)
	if err != nil {
		return err
	}
	path := speech.TranscriptPath(ep.Source, ep.OutputDir)
	if err := speech.SaveTranscript(transcript.Text, path); err != nil {
		return err
	}
	ep.Transcript = transcript.Text
	ep.TranscriptPath = path
	ep.Record(episode.Outcome{Stage: s.Name(), Status: episode.StatusCompleted, Outputs: []string{path}})
	s.log().Info("transcript saved",
		logging.String("transcript", path),
		logging.Int("characters", len([]rune(transcript.Text))),
	)
	return nil
}

func (s *transcribeStage) HealthCheck(context.Context) stage.Health {
	if s.p.deps.Transcriber == nil {
		return stage.Unhealthy(s.Name(), "speech client not configured")
	}
	if strings.TrimSpace(s.opts.Bucket) == "" {
		return stage.Unhealthy(s.Name(), "storage bucket not configured")
	}
	return stage.Healthy(s.Name())
}

type summarizeStage struct {
	loggerSlot
	p    *Pipeline
	opts Options
}

func (s *summarizeStage) Name() string { return episode.StageSummarization }

func (s *summarizeStage) Prepare(_ context.Context, ep *episode.Episode) error {
	if s.p.deps.Notes == nil {
		return unavailable(s.Name(), "show-notes generator")
	}
	if ep.HasTranscript() {
		return nil
	}
	if !s.opts.SkipTranscription {
		return stage.Skip("transcript unavailable")
	}
	return s.loadExistingTranscript(ep)
}

// loadExistingTranscript finds <stem>.txt in the output directory, then
// beside the audio.
func (s *summarizeStage) loadExistingTranscript(ep *episode.Episode) error {
	candidates := []string{speech.TranscriptPath(ep.Source, ep.OutputDir)}
	if beside := speech.TranscriptPath(ep.Source, ""); beside != candidates[0] {
		candidates = append(candidates, beside)
	}
	var firstErr error
	for _, path := range candidates {
		if err := stage.RequireFile(s.Name(), "transcript", path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, s.Name(), "read transcript", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return services.Wrap(services.ErrValidation, s.Name(), "read transcript", fmt.Sprintf("transcript %s is empty", path), nil)
		}
		ep.Transcript = string(data)
		ep.TranscriptPath = path
		return nil
	}
	return firstErr
}

func (s *summarizeStage) Execute(ctx context.Context, ep *episode.Episode) error {
	notes, err := s.p.deps.Notes.Generate(ctx, ep.Transcript)
	if err != nil {
		return err
	}
	path := shownotes.SummaryPath(ep.TranscriptPath, ep.OutputDir)
	if err := shownotes.Save(notes, path); err != nil {
		return err
	}
	ep.Notes = &notes
	ep.SummaryPath = path
	ep.Record(episode.Outcome{Stage: s.Name(), Status: episode.StatusCompleted, Outputs: []string{path}})
	s.log().Info("show notes saved",
		logging.String("summary", path),
		logging.String("title", notes.Title),
	)
	return nil
}

func (s *summarizeStage) HealthCheck(context.Context) stage.Health {
	if s.p.deps.Notes == nil {
		return stage.Unhealthy(s.Name(), "show-notes generator not configured")
	}
	return stage.Healthy(s.Name())
}
