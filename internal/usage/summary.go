package usage

import (
	"fmt"
	"strings"
)

// Summary is a point-in-time view of accumulated usage.
type Summary struct {
	Entries []Entry
	Total   float64
}

// Empty reports whether nothing billable was recorded.
func (s Summary) Empty() bool {
	return len(s.Entries) == 0
}

// Quantity describes the metered amount of an entry for display.
func (e Entry) Quantity() string {
	switch {
	case e.InputTokens > 0 || e.OutputTokens > 0:
		return fmt.Sprintf("%d in / %d out tokens", e.InputTokens, e.OutputTokens)
	case e.AudioMinutes > 0:
		return fmt.Sprintf("%.2f min", e.AudioMinutes)
	default:
		return "-"
	}
}

// Label names the entry as service or service/model.
func (e Entry) Label() string {
	if e.Model == "" {
		return e.Service
	}
	return e.Service + " (" + e.Model + ")"
}

// String renders the plain-text report printed at the end of a run.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("API USAGE COSTS:\n")
	if s.Empty() {
		b.WriteString("  no billable usage recorded\n")
		return b.String()
	}
	for _, entry := range s.Entries {
		note := ""
		if entry.PricingFallback {
			note = " (fallback pricing)"
		}
		fmt.Fprintf(&b, "  %s: %s = $%.4f%s\n", entry.Label(), entry.Quantity(), entry.Cost, note)
	}
	fmt.Fprintf(&b, "  TOTAL: $%.4f\n", s.Total)
	return b.String()
}
