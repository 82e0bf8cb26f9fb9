package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/STRATINT/radar/internal/models"
)

// VersionCacheRepository persists version cache slots in PostgreSQL.
// It satisfies cache.Store.
type VersionCacheRepository struct {
	db *sql.DB
}

// NewVersionCacheRepository creates a repository backed by db.
func NewVersionCacheRepository(db *sql.DB) *VersionCacheRepository {
	return &VersionCacheRepository{db: db}
}

// Load returns every stored snapshot keyed by source identifier.
func (r *VersionCacheRepository) Load(ctx context.Context) (map[string]models.Snapshot, error) {
	query := `
		SELECT source_id, snapshot
		FROM radar_version_cache
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query version cache: %w", err)
	}
	defer rows.Close()

	slots := make(map[string]models.Snapshot)
	for rows.Next() {
		var (
			sourceID string
			raw      []byte
		)
		if err := rows.Scan(&sourceID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan version cache row: %w", err)
		}

		var snap models.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot for %s: %w", sourceID, err)
		}
		snap.SourceID = sourceID
		slots[sourceID] = snap
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate version cache: %w", err)
	}

	return slots, nil
}

// Save upserts the slot for snapshot.SourceID.
func (r *VersionCacheRepository) Save(ctx context.Context, snapshot models.Snapshot) error {
	if snapshot.SourceID == "" {
		return fmt.Errorf("snapshot has no source id")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO radar_version_cache (source_id, version, snapshot, fetched_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (source_id) DO UPDATE SET
			version = EXCLUDED.version,
			snapshot = EXCLUDED.snapshot,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, snapshot.SourceID, snapshot.Version, payload, snapshot.FetchedAt); err != nil {
		return fmt.Errorf("failed to save version cache slot %s: %w", snapshot.SourceID, err)
	}

	return nil
}
