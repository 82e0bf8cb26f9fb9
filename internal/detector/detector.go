// Package detector diffs fetched snapshots against the version cache.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/STRATINT/radar/internal/cache"
	"github.com/STRATINT/radar/internal/models"
)

// Detect compares snapshot with the cached slot for sourceID and returns one
// Change per raw update when the version tag moved (or the source was never
// seen). The slot is overwritten with snapshot whether or not anything changed.
//
// If ctx is already done when the slot lock is acquired the cache is left
// untouched and ctx.Err() is returned.
func Detect(ctx context.Context, sourceID string, snapshot models.Snapshot, vc *cache.VersionCache, now time.Time) ([]models.Change, error) {
	var changes []models.Change

	err := vc.Update(ctx, sourceID, func(previous *models.Snapshot) (models.Snapshot, error) {
		if err := ctx.Err(); err != nil {
			return models.Snapshot{}, err
		}

		transition := models.VersionTransition{From: models.NoVersion, To: snapshot.Version}
		if previous != nil {
			if previous.Version == snapshot.Version {
				return snapshot, nil
			}
			transition.From = previous.Version
		}

		changes = make([]models.Change, 0, len(snapshot.Updates))
		for _, update := range snapshot.Updates {
			changes = append(changes, models.Change{
				SourceID:   sourceID,
				Update:     update,
				DetectedAt: now,
				Transition: transition,
			})
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", sourceID, err)
	}

	return changes, nil
}
