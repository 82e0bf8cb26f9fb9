// Package enrichment provides the optional collaborators of a radar cycle:
// semantic analysis of detected changes and executive summaries.
package enrichment

import (
	"context"
	"fmt"

	"github.com/STRATINT/radar/internal/models"
)

// Enricher annotates a batch of changes in a single call.
type Enricher interface {
	// Enrich returns one entry per change, in input order. An entry may be
	// nil when the analysis did not cover that change.
	Enrich(ctx context.Context, changes []models.Change) ([]*models.Enrichment, error)

	// Available reports whether deep analysis can actually run.
	Available() bool
}

// Summarizer produces a narrative for a completed cycle.
type Summarizer interface {
	Summarize(ctx context.Context, result models.CycleResult) (string, error)
}

// EnrichmentError reports an analysis failure or an unusable response.
type EnrichmentError struct {
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment failed: %v", e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// SummaryError reports a summarization failure.
type SummaryError struct {
	Err error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summary failed: %v", e.Err)
}

func (e *SummaryError) Unwrap() error {
	return e.Err
}

// NoopEnricher is used when no analysis backend is configured.
type NoopEnricher struct{}

// NewNoopEnricher returns an enricher that never annotates anything.
func NewNoopEnricher() *NoopEnricher {
	return &NoopEnricher{}
}

// Enrich returns a nil entry for every change.
func (NoopEnricher) Enrich(ctx context.Context, changes []models.Change) ([]*models.Enrichment, error) {
	return make([]*models.Enrichment, len(changes)), nil
}

func (NoopEnricher) Available() bool { return false }

// Apply attaches enrichments to changes by index. Extra entries on either
// side are ignored.
func Apply(changes []models.Change, enrichments []*models.Enrichment) int {
	applied := 0
	for i := range changes {
		if i >= len(enrichments) || enrichments[i] == nil {
			continue
		}
		changes[i].Enrichment = enrichments[i]
		applied++
	}
	return applied
}
