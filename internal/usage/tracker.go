package usage

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"podtenuki/internal/config"
	"podtenuki/internal/logging"
)

// Service names used as tracker keys.
const (
	ServiceEnhancement   = "auphonic"
	ServiceTranscription = "google_speech"
	ServiceSummarization = "openai"
)

// Metric is one metered usage sample reported by a client.
type Metric struct {
	Model        string
	InputTokens  int
	OutputTokens int
	AudioMinutes float64
}

func (m Metric) empty() bool {
	return m.InputTokens == 0 && m.OutputTokens == 0 && m.AudioMinutes == 0
}

func (m Metric) validate() error {
	switch {
	case m.InputTokens < 0 || m.OutputTokens < 0:
		return fmt.Errorf("negative token count (input=%d output=%d)", m.InputTokens, m.OutputTokens)
	case math.IsNaN(m.AudioMinutes) || math.IsInf(m.AudioMinutes, 0):
		return fmt.Errorf("non-finite audio minutes %v", m.AudioMinutes)
	case m.AudioMinutes < 0:
		return fmt.Errorf("negative audio minutes %v", m.AudioMinutes)
	}
	return nil
}

// ModelPrice is a per-1K-token price pair in USD.
type ModelPrice struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Pricing holds every rate the tracker applies.
type Pricing struct {
	SpeechPerMinute      float64
	EnhancementPerMinute float64
	FallbackModel        string
	Models               map[string]ModelPrice
}

// PricingFromConfig converts the configured tables.
func PricingFromConfig(cfg config.Pricing) Pricing {
	models := make(map[string]ModelPrice, len(cfg.Models))
	for name, price := range cfg.Models {
		models[strings.ToLower(name)] = ModelPrice{InputPer1K: price.InputPer1K, OutputPer1K: price.OutputPer1K}
	}
	return Pricing{
		SpeechPerMinute:      cfg.SpeechPerMinute,
		EnhancementPerMinute: cfg.EnhancementPerMinute,
		FallbackModel:        strings.ToLower(cfg.FallbackModel),
		Models:               models,
	}
}

// Entry aggregates usage for one service/model pair.
type Entry struct {
	Service         string
	Model           string
	Calls           int
	InputTokens     int
	OutputTokens    int
	AudioMinutes    float64
	Cost            float64
	PricingFallback bool
}

type entryKey struct {
	service string
	model   string
}

// Tracker accumulates usage for the lifetime of one process. It is safe for
// concurrent use and a nil *Tracker ignores every call.
type Tracker struct {
	mu      sync.Mutex
	pricing Pricing
	logger  *slog.Logger
	entries map[entryKey]*Entry
	order   []entryKey
	warned  map[string]struct{}
}

// NewTracker returns an empty tracker using pricing.
func NewTracker(pricing Pricing, logger *slog.Logger) *Tracker {
	return &Tracker{
		pricing: pricing,
		logger:  logging.NewComponentLogger(logger, "usage"),
		entries: make(map[entryKey]*Entry),
		warned:  make(map[string]struct{}),
	}
}

// Record adds a usage sample. Malformed samples are logged and dropped; Record
// never fails the caller.
func (t *Tracker) Record(service string, metric Metric) {
	if t == nil {
		return
	}
	service = strings.TrimSpace(service)
	if service == "" {
		t.logger.Warn("usage sample dropped", logging.String("reason", "empty service name"))
		return
	}
	if err := metric.validate(); err != nil {
		logging.WarnWithContext(t.logger, "usage sample dropped", "usage_invalid",
			logging.String("service", service),
			logging.Error(err),
			logging.String(logging.FieldImpact, "cost report understates usage"),
		)
		return
	}
	if metric.empty() {
		t.logger.Debug("usage sample empty", logging.String("service", service))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	model := strings.ToLower(strings.TrimSpace(metric.Model))
	cost, fallback := t.costLocked(service, model, metric)

	key := entryKey{service: service, model: model}
	entry, ok := t.entries[key]
	if !ok {
		entry = &Entry{Service: service, Model: model}
		t.entries[key] = entry
		t.order = append(t.order, key)
	}
	entry.Calls++
	entry.InputTokens += metric.InputTokens
	entry.OutputTokens += metric.OutputTokens
	entry.AudioMinutes += metric.AudioMinutes
	entry.Cost += cost
	entry.PricingFallback = entry.PricingFallback || fallback
}

func (t *Tracker) costLocked(service, model string, metric Metric) (float64, bool) {
	switch service {
	case ServiceTranscription:
		return metric.AudioMinutes * t.pricing.SpeechPerMinute, false
	case ServiceEnhancement:
		return metric.AudioMinutes * t.pricing.EnhancementPerMinute, false
	}
	if metric.InputTokens == 0 && metric.OutputTokens == 0 {
		return 0, false
	}
	price, ok := t.pricing.Models[model]
	fallback := false
	if !ok {
		fallback = true
		price = t.pricing.Models[t.pricing.FallbackModel]
		if _, seen := t.warned[model]; !seen {
			t.warned[model] = struct{}{}
			logging.WarnWithContext(t.logger, "no pricing for model", "usage_unknown_model",
				logging.String("model", model),
				logging.String("fallback_model", t.pricing.FallbackModel),
				logging.String(logging.FieldImpact, "cost estimate uses fallback pricing"),
				logging.String(logging.FieldErrorHint, "add the model under [pricing.models]"),
			)
		}
	}
	cost := float64(metric.InputTokens)/1000*price.InputPer1K + float64(metric.OutputTokens)/1000*price.OutputPer1K
	return cost, fallback
}

// Summary returns a snapshot of every entry in first-recorded order.
func (t *Tracker) Summary() Summary {
	if t == nil {
		return Summary{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	summary := Summary{Entries: make([]Entry, 0, len(t.order))}
	for _, key := range t.order {
		entry := *t.entries[key]
		summary.Entries = append(summary.Entries, entry)
		summary.Total += entry.Cost
	}
	return summary
}

// Reset clears all recorded usage.
func (t *Tracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[entryKey]*Entry)
	t.order = nil
	t.warned = make(map[string]struct{})
}
