package radar

import (
	"time"

	"github.com/STRATINT/radar/internal/models"
	"github.com/STRATINT/radar/internal/registry"
)

// Health levels reported by Engine.Health.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// degradedMinSources is the fewest reachable sources still reported as degraded
// rather than unhealthy.
const degradedMinSources = 3

// SourceStatus pairs a catalog entry with what the cache knows about it.
type SourceStatus struct {
	Source         string                  `json:"source"`
	Metadata       models.SourceDescriptor `json:"metadata"`
	CurrentVersion *string                 `json:"current_version"`
	LastUpdate     *time.Time              `json:"last_update"`
}

// HealthReport summarises engine readiness.
type HealthReport struct {
	Status           string     `json:"status"`
	SourcesAvailable int        `json:"sources_available"`
	SourcesTotal     int        `json:"sources_total"`
	EnrichmentOn     bool       `json:"gpt_enabled"`
	Uptime           float64    `json:"uptime"`
	LastCycle        *time.Time `json:"last_cycle,omitempty"`
	LastCheck        time.Time  `json:"last_check"`
}

// Capabilities describes what the engine can do.
type Capabilities struct {
	Features              []string          `json:"features"`
	SupportedSources      []string          `json:"supported_sources"`
	SeverityLevels        []models.Severity `json:"severity_levels"`
	MaxSourcesPerRequest  int               `json:"max_sources_per_request"`
	DeepAnalysisAvailable bool              `json:"deep_analysis_available"`
}

// Sources lists every registered source in catalog order.
func (e *Engine) Sources() []SourceStatus {
	list := e.registry.List()
	out := make([]SourceStatus, 0, len(list))
	for _, d := range list {
		out = append(out, e.status(d))
	}
	return out
}

// Source describes a single source. Unknown ids return registry.ErrNotFound.
func (e *Engine) Source(id string) (SourceStatus, error) {
	d, err := e.registry.Describe(id)
	if err != nil {
		return SourceStatus{}, err
	}
	return e.status(d), nil
}

func (e *Engine) status(d models.SourceDescriptor) SourceStatus {
	st := SourceStatus{Source: d.ID, Metadata: d}
	if snap, ok := e.cache.Get(d.ID); ok {
		version := snap.Version
		st.CurrentVersion = &version
		if !snap.FetchedAt.IsZero() {
			fetched := snap.FetchedAt.UTC()
			st.LastUpdate = &fetched
		}
	}
	return st
}

// Compare contrasts two registered sources.
func (e *Engine) Compare(id1, id2 string) (registry.Comparison, error) {
	return e.registry.Compare(id1, id2)
}

// Has reports whether id is in the catalog.
func (e *Engine) Has(id string) bool {
	return e.registry.Has(id)
}

// Health is healthy when every source is reachable and deep analysis is
// available, degraded while at least three sources are reachable. A source
// counts as unreachable only after its latest fetch failed.
func (e *Engine) Health() HealthReport {
	now := e.now()
	total := e.registry.Len()

	e.mu.RLock()
	failed := 0
	for _, id := range e.registry.IDs() {
		if e.fetchFailed[id] {
			failed++
		}
	}
	last := e.lastCycle
	e.mu.RUnlock()

	report := HealthReport{
		SourcesAvailable: total - failed,
		SourcesTotal:     total,
		EnrichmentOn:     e.enricher.Available(),
		Uptime:           now.Sub(e.started).Seconds(),
		LastCheck:        now.UTC(),
	}
	if !last.IsZero() {
		lc := last.UTC()
		report.LastCycle = &lc
	}

	switch {
	case report.EnrichmentOn && report.SourcesAvailable == total:
		report.Status = HealthHealthy
	case report.SourcesAvailable >= degradedMinSources:
		report.Status = HealthDegraded
	default:
		report.Status = HealthUnhealthy
	}
	return report
}

// Capabilities lists the engine's features and limits.
func (e *Engine) Capabilities() Capabilities {
	return Capabilities{
		Features: []string{
			"Multi-source regulatory monitoring",
			"Automatic version change detection",
			"Semantic analysis of changes",
			"Severity classification (Low to Critical)",
			"Executive summaries",
			"Standard comparison",
			"Persistent version cache",
			"Scheduled monitoring cycles",
		},
		SupportedSources:      e.registry.IDs(),
		SeverityLevels:        []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
		MaxSourcesPerRequest:  e.registry.Len(),
		DeepAnalysisAvailable: e.enricher.Available(),
	}
}
