package usage_test

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podtenuki/internal/config"
	"podtenuki/internal/logging"
	"podtenuki/internal/usage"
)

func newTracker() *usage.Tracker {
	return usage.NewTracker(usage.PricingFromConfig(config.Default().Pricing), logging.NewNop())
}

func TestRecordPricesTokensAndMinutes(t *testing.T) {
	tracker := newTracker()
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "gpt-4o", InputTokens: 2000, OutputTokens: 1000})
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: 10})

	summary := tracker.Summary()
	require.Len(t, summary.Entries, 2)
	assert.InDelta(t, 0.05, summary.Entries[0].Cost, 1e-9)
	assert.InDelta(t, 0.24, summary.Entries[1].Cost, 1e-9)
	assert.InDelta(t, 0.29, summary.Total, 1e-9)
}

func TestRecordAggregatesSameModel(t *testing.T) {
	tracker := newTracker()
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "GPT-4", InputTokens: 1000})
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "gpt-4", OutputTokens: 1000})

	summary := tracker.Summary()
	require.Len(t, summary.Entries, 1)
	entry := summary.Entries[0]
	assert.Equal(t, 2, entry.Calls)
	assert.Equal(t, "gpt-4", entry.Model)
	assert.InDelta(t, 0.09, entry.Cost, 1e-9)
}

func TestRecordUnknownModelUsesFallback(t *testing.T) {
	tracker := newTracker()
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "mystery-model", InputTokens: 1000, OutputTokens: 1000})

	summary := tracker.Summary()
	require.Len(t, summary.Entries, 1)
	assert.True(t, summary.Entries[0].PricingFallback)
	assert.InDelta(t, 0.04, summary.Entries[0].Cost, 1e-9)
}

func TestRecordSkipsMalformedSamples(t *testing.T) {
	tracker := newTracker()
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: -1})
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: math.NaN()})
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: math.Inf(1)})
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "gpt-4o", InputTokens: -5})
	tracker.Record("", usage.Metric{AudioMinutes: 1})
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "gpt-4o"})

	assert.True(t, tracker.Summary().Empty())
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *usage.Tracker
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: 1})
	tracker.Reset()
	assert.True(t, tracker.Summary().Empty())
}

func TestResetClearsEntries(t *testing.T) {
	tracker := newTracker()
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: 1})
	tracker.Reset()
	assert.True(t, tracker.Summary().Empty())
}

func TestConcurrentRecord(t *testing.T) {
	tracker := newTracker()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: 1})
		}()
	}
	wg.Wait()
	summary := tracker.Summary()
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, 50, summary.Entries[0].Calls)
	assert.InDelta(t, 1.2, summary.Total, 1e-9)
}

func TestSummaryString(t *testing.T) {
	tracker := newTracker()
	tracker.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: 12.5})
	tracker.Record(usage.ServiceSummarization, usage.Metric{Model: "unknown", InputTokens: 10, OutputTokens: 10})

	text := tracker.Summary().String()
	assert.True(t, strings.HasPrefix(text, "API USAGE COSTS:"))
	assert.Contains(t, text, "google_speech: 12.50 min = $0.3000")
	assert.Contains(t, text, "(fallback pricing)")
	assert.Contains(t, text, "TOTAL:")

	assert.Contains(t, usage.Summary{}.String(), "no billable usage recorded")
}
