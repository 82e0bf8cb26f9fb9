package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/STRATINT/radar/internal/models"
)

const maxSnapshotBytes = 4 << 20

// HTTPFetcherConfig configures HTTPFetcher.
type HTTPFetcherConfig struct {
	BaseURL      string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// HTTPFetcher reads snapshots as JSON from GET {BaseURL}/{sourceID}.
// Transient failures (connection errors, 5xx, 429) are retried by
// go-retryablehttp before surfacing as a FetchError.
type HTTPFetcher struct {
	baseURL string
	client  *retryablehttp.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewHTTPFetcher builds a fetcher. BaseURL must be absolute.
func NewHTTPFetcher(cfg HTTPFetcherConfig, logger *slog.Logger) (*HTTPFetcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid fetcher base URL %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	return &HTTPFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		logger:  logger,
		now:     time.Now,
	}, nil
}

type snapshotPayload struct {
	Version   string             `json:"version"`
	Updates   []models.RawUpdate `json:"latest_updates"`
	FetchedAt *time.Time         `json:"fetched_at"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context, sourceID string) (models.Snapshot, error) {
	endpoint := f.baseURL + "/" + url.PathEscape(sourceID)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Snapshot{}, NewFetchError(sourceID, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return models.Snapshot{}, NewFetchError(sourceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Snapshot{}, NewFetchError(sourceID, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload snapshotPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&payload); err != nil {
		return models.Snapshot{}, NewFetchError(sourceID, fmt.Errorf("decode snapshot: %w", err))
	}
	if strings.TrimSpace(payload.Version) == "" {
		return models.Snapshot{}, NewFetchError(sourceID, errors.New("snapshot has no version"))
	}

	snap := models.Snapshot{
		SourceID:  sourceID,
		Version:   payload.Version,
		Updates:   payload.Updates,
		FetchedAt: f.now().UTC(),
	}
	if payload.FetchedAt != nil {
		snap.FetchedAt = payload.FetchedAt.UTC()
	}

	f.logger.Debug("snapshot fetched",
		"source", sourceID,
		"version", snap.Version,
		"updates", len(snap.Updates),
		"duration", time.Since(start),
	)

	return snap, nil
}
