// Package ingestion obtains source snapshots for the radar.
package ingestion

import (
	"context"
	"fmt"

	"github.com/STRATINT/radar/internal/models"
)

// Fetcher returns the current snapshot of a regulatory source.
// Implementations own their retry policy; the engine never retries.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID string) (models.Snapshot, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, sourceID string) (models.Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, sourceID string) (models.Snapshot, error) {
	return f(ctx, sourceID)
}

// FetchError reports a network or parse failure for one source.
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err for sourceID.
func NewFetchError(sourceID string, err error) error {
	return &FetchError{SourceID: sourceID, Err: err}
}
