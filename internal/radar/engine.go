// Package radar runs monitoring cycles: fetch every requested source, detect
// version changes, optionally enrich and summarise, and rank the alerts.
package radar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/STRATINT/radar/internal/alerts"
	"github.com/STRATINT/radar/internal/cache"
	"github.com/STRATINT/radar/internal/detector"
	"github.com/STRATINT/radar/internal/enrichment"
	"github.com/STRATINT/radar/internal/ingestion"
	"github.com/STRATINT/radar/internal/logging"
	"github.com/STRATINT/radar/internal/metrics"
	"github.com/STRATINT/radar/internal/models"
	"github.com/STRATINT/radar/internal/registry"
)

// Triggers label where a cycle request came from.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// Config bounds the time spent in each phase of a cycle.
type Config struct {
	// CycleTimeout bounds the fetch and detect phase. Zero means no limit.
	CycleTimeout   time.Duration
	EnrichTimeout  time.Duration
	SummaryTimeout time.Duration
	// SuppressBaseline keeps first-observation changes out of the alerts.
	// The cache is still updated.
	SuppressBaseline bool
}

// DefaultConfig returns the timeouts used when none are configured.
func DefaultConfig() Config {
	return Config{
		CycleTimeout:   60 * time.Second,
		EnrichTimeout:  60 * time.Second,
		SummaryTimeout: 30 * time.Second,
	}
}

// Metrics receives cycle observations. *metrics.Collector implements it.
type Metrics interface {
	ObserveCycle(trigger, status string, duration time.Duration)
	ObserveFetch(source, outcome string)
	ObserveAlerts(severity string, n int)
	ObserveFallback(collaborator string)
	SetCachedSources(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveCycle(string, string, time.Duration) {}
func (nopMetrics) ObserveFetch(string, string)                 {}
func (nopMetrics) ObserveAlerts(string, int)                   {}
func (nopMetrics) ObserveFallback(string)                      {}
func (nopMetrics) SetCachedSources(int)                        {}

// Dependencies are the collaborators an Engine is built from. Registry and
// Fetcher are required; the rest fall back to no-op or in-memory versions.
type Dependencies struct {
	Registry   *registry.Registry
	Fetcher    ingestion.Fetcher
	Cache      *cache.VersionCache
	Enricher   enrichment.Enricher
	Summarizer enrichment.Summarizer
	Metrics    Metrics
	Logger     *slog.Logger
}

// CycleRequest selects what a cycle does. Empty Sources means every
// registered source.
type CycleRequest struct {
	Sources   []string
	Deep      bool
	Summarize bool
	Trigger   string
}

// Engine is the cycle orchestrator. It is safe for concurrent use; cycles may
// overlap.
type Engine struct {
	registry   *registry.Registry
	fetcher    ingestion.Fetcher
	cache      *cache.VersionCache
	enricher   enrichment.Enricher
	summarizer enrichment.Summarizer
	metrics    Metrics
	logger     *slog.Logger
	cfg        Config

	now     func() time.Time
	started time.Time

	mu          sync.RWMutex
	lastCycle   time.Time
	fetchFailed map[string]bool
}

// New builds an engine. It fails with registry.ErrConfiguration when the
// registry is missing or empty.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	if deps.Registry == nil || deps.Registry.Len() == 0 {
		return nil, fmt.Errorf("radar engine: %w", registry.ErrConfiguration)
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("radar engine: fetcher is required: %w", registry.ErrConfiguration)
	}

	logger := logging.Component(deps.Logger, "radar")
	if deps.Cache == nil {
		deps.Cache = cache.New(nil, logger)
	}
	if deps.Enricher == nil {
		deps.Enricher = enrichment.NewNoopEnricher()
	}
	if deps.Summarizer == nil {
		deps.Summarizer = enrichment.NewTemplateSummarizer()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}

	return &Engine{
		registry:    deps.Registry,
		fetcher:     deps.Fetcher,
		cache:       deps.Cache,
		enricher:    deps.Enricher,
		summarizer:  deps.Summarizer,
		metrics:     deps.Metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		started:     time.Now(),
		fetchFailed: make(map[string]bool),
	}, nil
}

// RunCycle executes one monitoring cycle. Fetch, enrichment and summary
// failures degrade the result instead of failing the call, so the error is
// nil even when every source fails.
func (e *Engine) RunCycle(ctx context.Context, req CycleRequest) (models.CycleResult, error) {
	start := e.now()
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	result := models.CycleResult{
		ID:               uuid.NewString(),
		Status:           models.CycleStatusSuccess,
		Timestamp:        start.UTC(),
		SourcesMonitored: []string{},
		Alerts:           []models.Alert{},
	}

	ids, skipped := e.resolve(req.Sources)
	if len(skipped) > 0 {
		result.SourcesSkipped = skipped
		e.logger.Warn("skipping unknown sources", "cycle_id", result.ID, "sources", skipped)
	}

	e.logger.Info("cycle started",
		"cycle_id", result.ID,
		"trigger", trigger,
		"sources", len(ids),
		"deep", req.Deep,
		"summarize", req.Summarize)

	monitored, changes := e.collect(ctx, result.ID, ids, start)
	result.SourcesMonitored = monitored

	if e.cfg.SuppressBaseline {
		changes = withoutBaseline(changes)
	}

	if req.Deep && len(changes) > 0 {
		e.enrich(ctx, result.ID, changes)
	}

	result.Alerts = alerts.Assemble(changes, start)
	result.AlertsCount = len(result.Alerts)

	if req.Summarize && len(result.Alerts) > 0 {
		summary := e.summarize(ctx, result)
		result.ExecutiveSummary = &summary
	}

	elapsed := e.now().Sub(start)
	seconds := math.Round(elapsed.Seconds()*1000) / 1000
	result.ProcessingTime = &seconds

	e.mu.Lock()
	e.lastCycle = start
	e.mu.Unlock()

	e.record(trigger, result, elapsed)

	e.logger.Info("cycle complete",
		"cycle_id", result.ID,
		"monitored", len(result.SourcesMonitored),
		"alerts", result.AlertsCount,
		"duration_ms", elapsed.Milliseconds())

	return result, nil
}

// resolve expands an empty request to the whole catalog and splits the rest
// into known (deduplicated, request order) and unknown identifiers.
func (e *Engine) resolve(requested []string) (known, unknown []string) {
	if len(requested) == 0 {
		return e.registry.IDs(), nil
	}

	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		if e.registry.Has(id) {
			known = append(known, id)
		} else {
			unknown = append(unknown, id)
		}
	}
	return known, unknown
}

type sourceOutcome struct {
	done    bool
	changes []models.Change
}

// collect fetches every source concurrently and runs detection as each fetch
// completes. Once the cycle deadline passes, sources still in flight are
// abandoned: they are not reported as monitored and leave the cache alone.
func (e *Engine) collect(ctx context.Context, cycleID string, ids []string, now time.Time) ([]string, []models.Change) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	cycleCtx, cancel := withOptionalTimeout(ctx, e.cfg.CycleTimeout)
	defer cancel()

	var (
		mu        sync.Mutex
		closed    bool
		outcomes  = make([]sourceOutcome, len(ids))
		fetching  sync.WaitGroup
		detecting sync.WaitGroup
	)

	for i, id := range ids {
		fetching.Add(1)
		go func(i int, id string) {
			defer fetching.Done()

			snapshot, err := e.fetcher.Fetch(cycleCtx, id)
			if err != nil {
				e.markFetch(id, err)
				e.logger.Warn("source fetch failed", "cycle_id", cycleID, "source", id, "error", err)
				return
			}

			mu.Lock()
			if closed {
				mu.Unlock()
				e.metrics.ObserveFetch(id, metrics.FetchAbandoned)
				e.logger.Warn("source finished after cycle deadline", "cycle_id", cycleID, "source", id)
				return
			}
			detecting.Add(1)
			mu.Unlock()
			defer detecting.Done()

			changes, err := detector.Detect(cycleCtx, id, snapshot, e.cache, now)
			if err != nil {
				e.markFetch(id, err)
				e.logger.Warn("change detection abandoned", "cycle_id", cycleID, "source", id, "error", err)
				return
			}
			e.markFetch(id, nil)

			mu.Lock()
			outcomes[i] = sourceOutcome{done: true, changes: changes}
			mu.Unlock()

			if len(changes) > 0 {
				e.logger.Info("changes detected",
					"cycle_id", cycleID,
					"source", id,
					"version_change", changes[0].Transition.String(),
					"changes", len(changes))
			}
		}(i, id)
	}

	allFetched := make(chan struct{})
	go func() {
		fetching.Wait()
		close(allFetched)
	}()

	select {
	case <-allFetched:
	case <-cycleCtx.Done():
		e.logger.Warn("cycle deadline reached, abandoning in-flight sources", "cycle_id", cycleID)
	}

	mu.Lock()
	closed = true
	mu.Unlock()
	detecting.Wait()

	mu.Lock()
	defer mu.Unlock()

	monitored := make([]string, 0, len(ids))
	var changes []models.Change
	for i, id := range ids {
		if !outcomes[i].done {
			continue
		}
		monitored = append(monitored, id)
		changes = append(changes, outcomes[i].changes...)
	}
	return monitored, changes
}

func (e *Engine) markFetch(id string, err error) {
	outcome := metrics.FetchOK
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		outcome = metrics.FetchAbandoned
	default:
		outcome = metrics.FetchFailed
	}
	e.metrics.ObserveFetch(id, outcome)

	e.mu.Lock()
	e.fetchFailed[id] = outcome == metrics.FetchFailed
	e.mu.Unlock()
}

func (e *Engine) enrich(ctx context.Context, cycleID string, changes []models.Change) {
	if !e.enricher.Available() {
		e.logger.Debug("deep analysis requested but no enricher is configured", "cycle_id", cycleID)
		return
	}

	enrichCtx, cancel := withOptionalTimeout(ctx, e.cfg.EnrichTimeout)
	defer cancel()

	enrichments, err := e.enricher.Enrich(enrichCtx, changes)
	if err != nil {
		e.metrics.ObserveFallback("enricher")
		e.logger.Warn("enrichment failed, using raw impact hints", "cycle_id", cycleID, "error", err)
		return
	}

	applied := enrichment.Apply(changes, enrichments)
	e.logger.Info("changes enriched", "cycle_id", cycleID, "changes", len(changes), "enriched", applied)
}

func (e *Engine) summarize(ctx context.Context, result models.CycleResult) string {
	summaryCtx, cancel := withOptionalTimeout(ctx, e.cfg.SummaryTimeout)
	defer cancel()

	summary, err := e.summarizer.Summarize(summaryCtx, result)
	if err != nil || summary == "" {
		e.metrics.ObserveFallback("summarizer")
		e.logger.Warn("summary failed, using template", "cycle_id", result.ID, "error", err)
		return enrichment.BasicSummary(result)
	}
	return summary
}

func (e *Engine) record(trigger string, result models.CycleResult, elapsed time.Duration) {
	e.metrics.ObserveCycle(trigger, string(result.Status), elapsed)
	for sev, n := range result.CountBySeverity() {
		e.metrics.ObserveAlerts(string(sev), n)
	}
	e.metrics.SetCachedSources(e.cache.Len())
}

// Close persists every cached slot.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.cache.Flush(ctx); err != nil {
		return fmt.Errorf("close radar engine: %w", err)
	}
	return nil
}

func withoutBaseline(changes []models.Change) []models.Change {
	kept := changes[:0]
	for _, c := range changes {
		if !c.Transition.IsFirstObservation() {
			kept = append(kept, c)
		}
	}
	return kept
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
