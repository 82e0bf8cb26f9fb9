package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/STRATINT/radar/internal/models"
)

// NoChangesSummary is returned when a cycle produced no alerts.
const NoChangesSummary = "No regulatory changes detected."

// TemplateSummarizer renders alert counts per severity. It never fails and
// is the fallback for every other Summarizer.
type TemplateSummarizer struct{}

// NewTemplateSummarizer returns the deterministic summarizer.
func NewTemplateSummarizer() *TemplateSummarizer {
	return &TemplateSummarizer{}
}

// Summarize lists the total and a line per severity present, most severe first.
func (TemplateSummarizer) Summarize(ctx context.Context, result models.CycleResult) (string, error) {
	return BasicSummary(result), nil
}

// BasicSummary is the templated summary of result.
func BasicSummary(result models.CycleResult) string {
	if len(result.Alerts) == 0 {
		return NoChangesSummary
	}

	counts := result.CountBySeverity()

	var b strings.Builder
	noun := "changes"
	if len(result.Alerts) == 1 {
		noun = "change"
	}
	fmt.Fprintf(&b, "Detected %d regulatory %s:", len(result.Alerts), noun)
	for _, sev := range models.Severities {
		if n := counts[sev]; n > 0 {
			fmt.Fprintf(&b, "\n  %s: %d", sev, n)
		}
	}
	return b.String()
}
