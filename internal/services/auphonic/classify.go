package auphonic

import (
	"strings"

	"podtenuki/internal/config"
)

// Verdict is the outcome of interpreting one status payload.
type Verdict int

const (
	InProgress Verdict = iota
	Success
	Failure
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "in_progress"
	}
}

// Status carries the fields a production status is judged on.
type Status struct {
	Code           int
	Text           string
	ErrorMessage   string
	ErrorStatus    string
	WarningMessage string
}

func (s Status) hasErrorFields() bool {
	return strings.TrimSpace(s.ErrorMessage) != "" ||
		strings.TrimSpace(s.ErrorStatus) != "" ||
		strings.TrimSpace(s.WarningMessage) != ""
}

// failureReason picks the most specific message available.
func (s Status) failureReason() string {
	for _, candidate := range []string{s.ErrorMessage, s.ErrorStatus, s.WarningMessage} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return "unknown error"
}

// Classification is the verdict plus the failure reason when Verdict is Failure.
type Classification struct {
	Verdict Verdict
	Reason  string
}

// Classifier holds the codes and text markers used to interpret statuses. The
// remote service can report an error code while a file is still being
// processed, so the text markers are checked before the numeric code.
type Classifier struct {
	DoneCode          int
	ErrorCode         int
	ProcessingMarkers []string
	DoneMarkers       []string
	ProcessingHints   []string
}

// DefaultClassifier returns the rules observed against the live service.
func DefaultClassifier() Classifier {
	return ClassifierFromConfig(config.Default().Enhancement.Status)
}

// ClassifierFromConfig builds a classifier from the [enhancement.status] table.
func ClassifierFromConfig(rules config.StatusRules) Classifier {
	return Classifier{
		DoneCode:          rules.DoneCode,
		ErrorCode:         rules.ErrorCode,
		ProcessingMarkers: lowerAll(rules.ProcessingMarkers),
		DoneMarkers:       lowerAll(rules.DoneMarkers),
		ProcessingHints:   lowerAll(rules.ProcessingHints),
	}
}

// Classify applies the default classifier.
func Classify(status Status) Classification {
	return DefaultClassifier().Classify(status)
}

// Classify interprets status by priority:
//  1. processing marker in text: in progress, whatever the code
//  2. done code or done marker in text: success
//  3. error code, no error fields, text hints at processing: in progress
//  4. error code with any error field: failure
//  5. anything else: in progress
func (c Classifier) Classify(status Status) Classification {
	text := strings.ToLower(status.Text)
	switch {
	case containsAny(text, c.ProcessingMarkers):
		return Classification{Verdict: InProgress}
	case status.Code == c.DoneCode || containsAny(text, c.DoneMarkers):
		return Classification{Verdict: Success}
	case status.Code == c.ErrorCode && !status.hasErrorFields() && containsAny(text, c.ProcessingHints):
		return Classification{Verdict: InProgress}
	case status.Code == c.ErrorCode && status.hasErrorFields():
		return Classification{Verdict: Failure, Reason: status.failureReason()}
	default:
		return Classification{Verdict: InProgress}
	}
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
