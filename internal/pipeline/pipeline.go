package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podtenuki/internal/episode"
	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/media/concat"
	"podtenuki/internal/media/ffprobe"
	"podtenuki/internal/services"
	"podtenuki/internal/services/auphonic"
	"podtenuki/internal/services/speech"
	"podtenuki/internal/shownotes"
	"podtenuki/internal/stage"
	"podtenuki/internal/usage"
)

// Concatenator joins multiple WAV recordings into one file.
type Concatenator interface {
	Concatenate(ctx context.Context, inputs []string, opts concat.Options) (string, error)
}

// Enhancer runs a remote audio enhancement production.
type Enhancer interface {
	ResolvePreset(ctx context.Context, presetUUID, presetName string) (string, error)
	Process(ctx context.Context, artifact audio.Artifact, presetID, destDir string) (auphonic.Result, error)
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact audio.Artifact, bucket string) (speech.Transcript, error)
}

// NotesWriter produces show notes from a transcript.
type NotesWriter interface {
	Generate(ctx context.Context, transcript string) (shownotes.Notes, error)
}

// Dependencies wires the stage backends. A nil backend is only an error when
// its stage is requested.
type Dependencies struct {
	Concat      Concatenator
	Enhancer    Enhancer
	Transcriber Transcriber
	Notes       NotesWriter
	Probe       ffprobe.Prober
	Usage       *usage.Tracker
	Logger      *slog.Logger
}

// Options selects inputs, destinations, and which stages run.
type Options struct {
	Inputs     []string
	OutputDir  string
	OutputName string

	PresetUUID string
	PresetName string
	Bucket     string

	SkipEnhancement   bool
	SkipTranscription bool
	SkipSummarization bool
}

// Report describes a finished run.
type Report struct {
	Source         string
	EnhancedFiles  []string
	TranscriptPath string
	SummaryPath    string
	Notes          *shownotes.Notes
	Outcomes       []episode.Outcome
	Usage          usage.Summary
	Elapsed        time.Duration
}

// Pipeline executes episodes. It holds no per-run state.
type Pipeline struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a pipeline over deps.
func New(deps Dependencies) *Pipeline {
	return &Pipeline{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:    time.Now,
	}
}

type step struct {
	handler stage.Handler
	skip    bool
	// fatal execution errors end the run.
	fatal bool
}

// Run processes one episode. The returned report is populated even when an
// error ends the run early.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Report, error) {
	started := p.now()
	if len(opts.Inputs) > 0 {
		ctx = services.WithInput(ctx, opts.Inputs[0])
	}
	logger := logging.WithContext(ctx, p.logger)

	ep := episode.New(opts.Inputs, opts.OutputDir)
	report := func() Report {
		return p.report(ep, started)
	}

	if err := validateInputs(opts.Inputs); err != nil {
		return report(), err
	}

	lock, err := acquireLock(lockDir(ep))
	if err != nil {
		return report(), err
	}
	defer func() {
		if err := lock.release(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	steps := []step{
		{handler: &concatStage{p: p, opts: opts}, fatal: true},
		{handler: &enhanceStage{p: p, opts: opts}, skip: opts.SkipEnhancement},
		{handler: &transcribeStage{p: p, opts: opts}, skip: opts.SkipTranscription},
		{handler: &summarizeStage{p: p, opts: opts}, skip: opts.SkipSummarization},
	}
	for _, st := range steps {
		if st.skip {
			p.recordSkip(ctx, ep, st.handler.Name(), "disabled by flag")
			continue
		}
		if err := p.runStage(ctx, ep, st); err != nil {
			logging.ErrorWithContext(logger, "pipeline aborted", logging.EventPipelineAbort,
				logging.String(logging.FieldStage, st.handler.Name()),
				logging.Error(err),
			)
			return report(), err
		}
	}

	final := report()
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, logging.EventPipelineComplete),
		logging.Duration("elapsed", final.Elapsed),
		logging.Float64("estimated_cost_usd", final.Usage.Total),
	)
	return final, nil
}

// Health reports readiness of every stage backend for opts.
func (p *Pipeline) Health(ctx context.Context, opts Options) []stage.Health {
	handlers := []stage.Handler{
		&concatStage{p: p, opts: opts},
		&enhanceStage{p: p, opts: opts},
		&transcribeStage{p: p, opts: opts},
		&summarizeStage{p: p, opts: opts},
	}
	health := make([]stage.Health, 0, len(handlers))
	for _, h := range handlers {
		health = append(health, h.HealthCheck(ctx))
	}
	return health
}

func (p *Pipeline) runStage(ctx context.Context, ep *episode.Episode, st step) error {
	h := st.handler
	name := h.Name()
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, p.logger)
	if aware, ok := h.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageStart := p.now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, logging.EventStageStart),
		logging.String("source_file", strings.TrimSpace(ep.Source)),
	)

	if err := h.Prepare(stageCtx, ep); err != nil {
		if reason, ok := stage.SkipReason(err); ok {
			p.recordSkip(ctx, ep, name, reason)
			return nil
		}
		p.recordFailure(stageLogger, ep, name, err, p.now().Sub(stageStart))
		return err
	}

	if err := h.Execute(stageCtx, ep); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			stageLogger.Debug("stage interrupted")
			ep.Record(episode.Outcome{Stage: name, Status: episode.StatusFailed, Detail: "interrupted", Duration: p.now().Sub(stageStart)})
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		p.recordFailure(stageLogger, ep, name, err, p.now().Sub(stageStart))
		if st.fatal {
			return err
		}
		return nil
	}

	outcome := ep.Outcome(name)
	if outcome.Status == episode.StatusPending {
		outcome.Status = episode.StatusCompleted
	}
	outcome.Duration = p.now().Sub(stageStart)
	ep.Record(outcome)

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, logging.EventStageComplete),
		logging.String("status", string(outcome.Status)),
		logging.Duration("stage_duration", outcome.Duration),
		logging.String("source_file", strings.TrimSpace(ep.Source)),
	)
	return nil
}

func (p *Pipeline) recordSkip(ctx context.Context, ep *episode.Episode, name, reason string) {
	ep.Record(episode.Outcome{Stage: name, Status: episode.StatusSkipped, Detail: reason})
	logging.WithContext(services.WithStage(ctx, name), p.logger).Info(
		"stage skipped",
		logging.String(logging.FieldEventType, logging.EventStageSkip),
		logging.String("reason", reason),
	)
}

func (p *Pipeline) recordFailure(logger *slog.Logger, ep *episode.Episode, name string, err error, elapsed time.Duration) {
	message := strings.TrimSpace(err.Error())
	ep.Record(episode.Outcome{Stage: name, Status: episode.StatusFailed, Detail: message, Duration: elapsed})
	logging.ErrorWithContext(logger, "stage failed", logging.EventStageFailure,
		logging.String("error_message", message),
		logging.Error(err),
	)
}

func (p *Pipeline) report(ep *episode.Episode, started time.Time) Report {
	return Report{
		Source:         ep.Source,
		EnhancedFiles:  append([]string(nil), ep.EnhancedFiles...),
		TranscriptPath: ep.TranscriptPath,
		SummaryPath:    ep.SummaryPath,
		Notes:          ep.Notes,
		Outcomes:       ep.Outcomes(),
		Usage:          p.deps.Usage.Summary(),
		Elapsed:        p.now().Sub(started),
	}
}

// describe probes the current source once per source change.
func (p *Pipeline) describe(ctx context.Context, ep *episode.Episode) (audio.Artifact, error) {
	if ep.Artifact.Path == ep.Source && ep.Source != "" {
		return ep.Artifact, nil
	}
	artifact, err := audio.Describe(ctx, p.deps.Probe, ep.Source)
	if err != nil {
		return audio.Artifact{}, err
	}
	ep.Artifact = artifact
	return artifact, nil
}

func validateInputs(inputs []string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "inputs", "no audio files given", nil)
	}
	for _, input := range inputs {
		if err := stage.RequireFile("pipeline", "audio file", input); err != nil {
			return err
		}
	}
	return nil
}

func unavailable(name, what string) error {
	return services.Wrap(services.ErrConfiguration, name, "prepare", fmt.Sprintf("%s is not configured", what), nil)
}
