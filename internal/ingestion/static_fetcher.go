package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/STRATINT/radar/internal/models"
)

// ErrUnknownSource is returned by StaticFetcher for ids it has no data for.
var ErrUnknownSource = errors.New("no data for source")

// StaticFetcher serves fixed snapshots from memory. It stands in for real
// scrapers so the service runs without network access, and lets operators or
// tests publish new versions with Publish.
type StaticFetcher struct {
	mu        sync.RWMutex
	snapshots map[string]models.Snapshot
	now       func() time.Time
}

// NewStaticFetcher returns a fetcher preloaded with the reference data set.
func NewStaticFetcher() *StaticFetcher {
	return NewStaticFetcherWith(ReferenceSnapshots())
}

// NewStaticFetcherWith returns a fetcher serving the given snapshots.
func NewStaticFetcherWith(snapshots map[string]models.Snapshot) *StaticFetcher {
	f := &StaticFetcher{
		snapshots: make(map[string]models.Snapshot, len(snapshots)),
		now:       time.Now,
	}
	for id, snap := range snapshots {
		f.snapshots[id] = snap
	}
	return f
}

// Publish replaces the snapshot served for sourceID.
func (f *StaticFetcher) Publish(sourceID, version string, updates []models.RawUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[sourceID] = models.Snapshot{
		SourceID: sourceID,
		Version:  version,
		Updates:  append([]models.RawUpdate(nil), updates...),
	}
}

func (f *StaticFetcher) Fetch(ctx context.Context, sourceID string) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, NewFetchError(sourceID, err)
	}

	f.mu.RLock()
	snap, ok := f.snapshots[sourceID]
	f.mu.RUnlock()
	if !ok {
		return models.Snapshot{}, NewFetchError(sourceID, ErrUnknownSource)
	}

	snap.SourceID = sourceID
	snap.Updates = append([]models.RawUpdate(nil), snap.Updates...)
	snap.FetchedAt = f.now().UTC()
	return snap, nil
}

// ReferenceSnapshots is the reference data set for the five mining reporting
// standards in the default catalog.
func ReferenceSnapshots() map[string]models.Snapshot {
	return map[string]models.Snapshot{
		"ANM": {
			Version: "v2025.10",
			Updates: []models.RawUpdate{
				{
					Title:   "ANM Resolution 125/2025 - New requirements for tailings dams",
					Date:    "2025-10-15",
					Type:    "regulatory_change",
					Impact:  models.ImpactHigh,
					Summary: "Sets new safety criteria for class C and D mining tailings dams",
				},
				{
					Title:   "ANM Ordinance 89/2025 - Fee update",
					Date:    "2025-10-20",
					Type:    "administrative",
					Impact:  models.ImpactMedium,
					Summary: "Annual adjustment of inspection fees",
				},
			},
		},
		"JORC": {
			Version: "v2025.3",
			Updates: []models.RawUpdate{
				{
					Title:   "JORC Code 2025 - Amendment 3",
					Date:    "2025-09-30",
					Type:    "code_update",
					Impact:  models.ImpactCritical,
					Summary: "Introduces additional requirements for resource reporting in sensitive areas",
				},
			},
		},
		"NI43-101": {
			Version: "v2025.Q3",
			Updates: []models.RawUpdate{
				{
					Title:   "CSA Staff Notice 43-309 - ESG Disclosure",
					Date:    "2025-10-01",
					Type:    "guidance",
					Impact:  models.ImpactHigh,
					Summary: "New guidance on disclosure of ESG factors in technical reports",
				},
			},
		},
		"PERC": {
			Version: "v2025.2",
			Updates: []models.RawUpdate{
				{
					Title:   "PERC Standard 2025 - CRIRSCO harmonisation",
					Date:    "2025-08-15",
					Type:    "standard_update",
					Impact:  models.ImpactMedium,
					Summary: "Aligns terminology with the CRIRSCO international template",
				},
			},
		},
		"SAMREC": {
			Version: "v2025.1",
			Updates: []models.RawUpdate{
				{
					Title:   "SAMREC Code 2025 Edition",
					Date:    "2025-07-01",
					Type:    "code_revision",
					Impact:  models.ImpactHigh,
					Summary: "Full revision of the code including new requirements for deep-level mining",
				},
			},
		},
	}
}
