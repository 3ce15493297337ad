package episode

import (
	"fmt"
	"strings"
	"time"

	"podtenuki/internal/media/audio"
	"podtenuki/internal/shownotes"
)

// Stage names in execution order.
const (
	StageConcat        = "concatenation"
	StageEnhancement   = "enhancement"
	StageTranscription = "transcription"
	StageSummarization = "summarization"
)

// Order lists the stages as the pipeline runs them.
var Order = []string{StageConcat, StageEnhancement, StageTranscription, StageSummarization}

// Status is the terminal state of one stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFallback  Status = "fallback"
	StatusFailed    Status = "failed"
)

// Outcome records how a stage ended.
type Outcome struct {
	Stage    string
	Status   Status
	Detail   string
	Outputs  []string
	Duration time.Duration
}

// Episode is the mutable state of one pipeline run. It is owned by a single
// goroutine.
type Episode struct {
	Inputs    []string
	OutputDir string

	// Source is the audio every later stage reads. It starts as the first
	// input and is replaced by the concatenated or enhanced file.
	Source   string
	Original string
	Artifact audio.Artifact

	EnhancedFiles  []string
	TranscriptPath string
	Transcript     string
	Notes          *shownotes.Notes
	SummaryPath    string

	outcomes map[string]Outcome
}

// New returns an episode for inputs. The first input is the initial source.
func New(inputs []string, outputDir string) *Episode {
	ep := &Episode{
		Inputs:    append([]string(nil), inputs...),
		OutputDir: strings.TrimSpace(outputDir),
		outcomes:  make(map[string]Outcome, len(Order)),
	}
	if len(inputs) > 0 {
		ep.Source = inputs[0]
		ep.Original = inputs[0]
	}
	return ep
}

// SetSource switches the working audio file and forgets stale metadata.
func (e *Episode) SetSource(path string) {
	e.Source = path
	e.Artifact = audio.Artifact{}
}

// Record stores the outcome for its stage, replacing any earlier one.
func (e *Episode) Record(outcome Outcome) {
	if e.outcomes == nil {
		e.outcomes = make(map[string]Outcome, len(Order))
	}
	e.outcomes[outcome.Stage] = outcome
}

// Outcome returns the recorded outcome for stage or a pending placeholder.
func (e *Episode) Outcome(stage string) Outcome {
	if outcome, ok := e.outcomes[stage]; ok {
		return outcome
	}
	return Outcome{Stage: stage, Status: StatusPending}
}

// Outcomes returns every stage outcome in execution order.
func (e *Episode) Outcomes() []Outcome {
	list := make([]Outcome, 0, len(Order))
	for _, stage := range Order {
		list = append(list, e.Outcome(stage))
	}
	return list
}

// HasTranscript reports whether transcript text is available.
func (e *Episode) HasTranscript() bool {
	return strings.TrimSpace(e.Transcript) != ""
}

func (o Outcome) String() string {
	if o.Detail == "" {
		return fmt.Sprintf("%s: %s", o.Stage, o.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", o.Stage, o.Status, o.Detail)
}
