package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podtenuki/internal/config"
	"podtenuki/internal/episode"
	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/media/concat"
	"podtenuki/internal/pipeline"
	"podtenuki/internal/services"
	"podtenuki/internal/services/auphonic"
	"podtenuki/internal/services/speech"
	"podtenuki/internal/shownotes"
	"podtenuki/internal/usage"
)

type fakeConcat struct {
	calls  [][]string
	output string
	err    error
}

func (f *fakeConcat) Concatenate(_ context.Context, inputs []string, opts concat.Options) (string, error) {
	f.calls = append(f.calls, inputs)
	if f.err != nil {
		return "", f.err
	}
	path, err := concat.OutputPath(inputs, opts)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("joined"), 0o644); err != nil {
		return "", err
	}
	f.output = path
	return path, nil
}

type fakeEnhancer struct {
	presetErr  error
	processErr error
	noOutputs  bool
	presetSeen string
	artifacts  []audio.Artifact
}

func (f *fakeEnhancer) ResolvePreset(_ context.Context, presetUUID, presetName string) (string, error) {
	if f.presetErr != nil {
		return "", f.presetErr
	}
	if presetName != "" {
		f.presetSeen = "by-name"
		return "by-name", nil
	}
	f.presetSeen = presetUUID
	return presetUUID, nil
}

func (f *fakeEnhancer) Process(_ context.Context, artifact audio.Artifact, _ string, destDir string) (auphonic.Result, error) {
	f.artifacts = append(f.artifacts, artifact)
	if f.processErr != nil {
		return auphonic.Result{}, f.processErr
	}
	if f.noOutputs {
		return auphonic.Result{}, nil
	}
	out := filepath.Join(destDir, artifact.Stem()+"-enhanced.mp3")
	if err := os.WriteFile(out, []byte("enhanced"), 0o644); err != nil {
		return auphonic.Result{}, err
	}
	return auphonic.Result{Outputs: []string{out}}, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	paths []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, artifact audio.Artifact, _ string) (speech.Transcript, error) {
	f.paths = append(f.paths, artifact.Path)
	if f.err != nil {
		return speech.Transcript{}, f.err
	}
	return speech.Transcript{Text: f.text}, nil
}

type fakeNotes struct {
	seen []string
	err  error
}

func (f *fakeNotes) Generate(_ context.Context, transcript string) (shownotes.Notes, error) {
	f.seen = append(f.seen, transcript)
	if f.err != nil {
		return shownotes.Notes{}, f.err
	}
	return shownotes.Notes{Title: "Episode title", Body: "Episode body"}, nil
}

type harness struct {
	concat      *fakeConcat
	enhancer    *fakeEnhancer
	transcriber *fakeTranscriber
	notes       *fakeNotes
	tracker     *usage.Tracker
}

func newHarness() *harness {
	return &harness{
		concat:      &fakeConcat{},
		enhancer:    &fakeEnhancer{},
		transcriber: &fakeTranscriber{text: "こんにちは"},
		notes:       &fakeNotes{},
		tracker:     usage.NewTracker(usage.PricingFromConfig(config.Default().Pricing), logging.NewNop()),
	}
}

func (h *harness) pipeline() *pipeline.Pipeline {
	return pipeline.New(pipeline.Dependencies{
		Concat:      h.concat,
		Enhancer:    h.enhancer,
		Transcriber: h.transcriber,
		Notes:       h.notes,
		Usage:       h.tracker,
		Logger:      logging.NewNop(),
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func outcome(t *testing.T, report pipeline.Report, stage string) episode.Outcome {
	t.Helper()
	for _, o := range report.Outcomes {
		if o.Stage == stage {
			return o
		}
	}
	t.Fatalf("no outcome for %s", stage)
	return episode.Outcome{}
}

func TestRunFullPipeline(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	input := writeFile(t, dir, "show.mp3", "raw audio")
	h := newHarness()

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:     []string{input},
		OutputDir:  outDir,
		PresetUUID: "preset-1",
		Bucket:     "bucket",
	})
	require.NoError(t, err)

	assert.Equal(t, episode.StatusSkipped, outcome(t, report, episode.StageConcat).Status)
	assert.Equal(t, episode.StatusCompleted, outcome(t, report, episode.StageEnhancement).Status)
	assert.Equal(t, episode.StatusCompleted, outcome(t, report, episode.StageTranscription).Status)
	assert.Equal(t, episode.StatusCompleted, outcome(t, report, episode.StageSummarization).Status)
	assert.Equal(t, "preset-1", h.enhancer.presetSeen)

	enhanced := filepath.Join(outDir, "show-enhanced.mp3")
	assert.Equal(t, []string{enhanced}, report.EnhancedFiles)
	assert.Equal(t, []string{enhanced}, h.transcriber.paths)

	assert.Equal(t, filepath.Join(outDir, "show-enhanced.txt"), report.TranscriptPath)
	data, err := os.ReadFile(report.TranscriptPath)
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", string(data))

	assert.Equal(t, filepath.Join(outDir, "show-enhanced.summary.md"), report.SummaryPath)
	summary, err := os.ReadFile(report.SummaryPath)
	require.NoError(t, err)
	assert.Equal(t, "# Episode title\n\nEpisode body", string(summary))
	require.NotNil(t, report.Notes)
	assert.Equal(t, "Episode title", report.Notes.Title)

	_, err = os.Stat(filepath.Join(outDir, pipeline.LockFileName))
	assert.True(t, os.IsNotExist(err), "lock file should be removed after the run")
}

func TestRunConcatenatesWAVInputs(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "part1.wav", "a")
	second := writeFile(t, dir, "part2.WAV", "b")
	h := newHarness()

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:          []string{first, second},
		OutputDir:       dir,
		OutputName:      "joined.mp3",
		SkipEnhancement: true,
	})
	require.NoError(t, err)
	require.Len(t, h.concat.calls, 1)
	assert.Equal(t, []string{first, second}, h.concat.calls[0])

	joined := filepath.Join(dir, "joined.mp3")
	assert.Equal(t, []string{joined}, outcome(t, report, episode.StageConcat).Outputs)
	assert.Equal(t, []string{joined}, h.transcriber.paths)
	assert.Equal(t, episode.StatusSkipped, outcome(t, report, episode.StageEnhancement).Status)
}

func TestRunConcatFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.wav", "a")
	second := writeFile(t, dir, "b.wav", "b")
	h := newHarness()
	h.concat.err = services.Wrap(services.ErrExternalTool, "concat", "ffmpeg", "boom", nil)

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{Inputs: []string{first, second}})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrExternalTool)
	assert.Equal(t, services.ExitFailure, services.ExitCode(err))
	assert.Equal(t, episode.StatusFailed, outcome(t, report, episode.StageConcat).Status)
	assert.Empty(t, h.enhancer.artifacts)
}

func TestRunMixedInputsUsesFirst(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.wav", "a")
	second := writeFile(t, dir, "b.mp3", "b")
	h := newHarness()

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:            []string{first, second},
		SkipEnhancement:   true,
		SkipSummarization: true,
	})
	require.NoError(t, err)
	assert.Empty(t, h.concat.calls)
	assert.Equal(t, []string{first}, h.transcriber.paths)
	assert.Equal(t, "mixed input formats", outcome(t, report, episode.StageConcat).Detail)
}

func TestRunEnhancementFallsBackToOriginal(t *testing.T) {
	cases := map[string]func(*fakeEnhancer){
		"process error": func(f *fakeEnhancer) { f.processErr = errors.New("remote failure") },
		"preset error":  func(f *fakeEnhancer) { f.presetErr = services.Wrap(services.ErrConfiguration, "enhancement", "preset", "unknown", nil) },
		"no outputs":    func(f *fakeEnhancer) { f.noOutputs = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeFile(t, dir, "show.m4a", "raw")
			h := newHarness()
			mutate(h.enhancer)

			report, err := h.pipeline().Run(context.Background(), pipeline.Options{
				Inputs:     []string{input},
				PresetName: "Podcast",
			})
			require.NoError(t, err)
			assert.Equal(t, episode.StatusFallback, outcome(t, report, episode.StageEnhancement).Status)
			assert.Equal(t, []string{input}, h.transcriber.paths)
			assert.Equal(t, filepath.Join(dir, "show.txt"), report.TranscriptPath)
		})
	}
}

func TestRunTranscriptionFailureSkipsSummarization(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "show.mp3", "raw")
	h := newHarness()
	h.transcriber.err = services.Wrap(services.ErrExternalTool, "transcription", "recognize", "quota", nil)

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:          []string{input},
		SkipEnhancement: true,
	})
	require.NoError(t, err)
	assert.Equal(t, episode.StatusFailed, outcome(t, report, episode.StageTranscription).Status)
	summarize := outcome(t, report, episode.StageSummarization)
	assert.Equal(t, episode.StatusSkipped, summarize.Status)
	assert.Equal(t, "transcript unavailable", summarize.Detail)
	assert.Empty(t, h.notes.seen)
	assert.Empty(t, report.TranscriptPath)
}

func TestRunSummarizesExistingTranscript(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	input := writeFile(t, dir, "show.mp3", "raw")
	writeFile(t, dir, "show.txt", "saved transcript")
	h := newHarness()

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:            []string{input},
		OutputDir:         outDir,
		SkipEnhancement:   true,
		SkipTranscription: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"saved transcript"}, h.notes.seen)
	assert.Equal(t, filepath.Join(outDir, "show.summary.md"), report.SummaryPath)
	assert.Empty(t, h.transcriber.paths)
}

func TestRunSummarizationWithoutTranscriptIsFatal(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "show.mp3", "raw")
	h := newHarness()

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:            []string{input},
		SkipEnhancement:   true,
		SkipTranscription: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Equal(t, episode.StatusFailed, outcome(t, report, episode.StageSummarization).Status)
	assert.Empty(t, h.notes.seen)
}

func TestRunSummarizationFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "show.mp3", "raw")
	h := newHarness()
	h.notes.err = errors.New("llm unavailable")

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:          []string{input},
		SkipEnhancement: true,
	})
	require.NoError(t, err)
	assert.Equal(t, episode.StatusFailed, outcome(t, report, episode.StageSummarization).Status)
	assert.Empty(t, report.SummaryPath)
}

func TestRunRejectsMissingInput(t *testing.T) {
	h := newHarness()
	_, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs: []string{filepath.Join(t.TempDir(), "missing.wav")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = h.pipeline().Run(context.Background(), pipeline.Options{})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestRunRefusesLockedOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "show.mp3", "raw")
	held := flock.New(filepath.Join(dir, pipeline.LockFileName))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	h := newHarness()
	_, err = h.pipeline().Run(context.Background(), pipeline.Options{Inputs: []string{input}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "another podtenuki run"), err.Error())
	assert.Empty(t, h.enhancer.artifacts)
}

func TestRunReportsUsage(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "show.mp3", "raw")
	h := newHarness()
	h.tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: 10})

	report, err := h.pipeline().Run(context.Background(), pipeline.Options{
		Inputs:            []string{input},
		SkipEnhancement:   true,
		SkipSummarization: true,
	})
	require.NoError(t, err)
	require.Len(t, report.Usage.Entries, 1)
	assert.InDelta(t, 0.24, report.Usage.Total, 1e-9)
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "show.mp3", "raw")
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	h.transcriber.err = context.Canceled
	cancel()

	_, err := h.pipeline().Run(ctx, pipeline.Options{
		Inputs:          []string{input},
		SkipEnhancement: true,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, services.ExitInterrupted, services.ExitCode(err))
}

func TestHealthFlagsMissingBackends(t *testing.T) {
	p := pipeline.New(pipeline.Dependencies{Logger: logging.NewNop()})
	health := p.Health(context.Background(), pipeline.Options{})
	require.Len(t, health, 4)
	for _, h := range health {
		assert.False(t, h.Ready, h.Name)
	}
}
