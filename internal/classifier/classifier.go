// Package classifier assigns a severity level and a confidence score to
// detected changes.
package classifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/STRATINT/radar/internal/models"
)

// Scoring constants. These values are the compatibility contract for alert
// confidence and must not drift.
const (
	BaseConfidence     = 0.5
	EnrichedFloor      = 0.3
	EnrichedWeight     = 0.7
	VersionChangeBonus = 0.15
	RecentUpdateBonus  = 0.10
	RecentUpdateWindow = 30 * 24 * time.Hour
	maxImpactScore     = 100.0
)

var impactSeverity = map[models.ImpactHint]models.Severity{
	models.ImpactCritical: models.SeverityCritical,
	models.ImpactHigh:     models.SeverityHigh,
	models.ImpactMedium:   models.SeverityMedium,
	models.ImpactLow:      models.SeverityLow,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Classify returns the severity and confidence of change as evaluated at now.
func Classify(change models.Change, now time.Time) (models.Severity, float64) {
	return Severity(change), Confidence(change, now)
}

// Severity trusts an enrichment-supplied level and otherwise maps the raw
// impact hint. Unknown hints are Low.
func Severity(change models.Change) models.Severity {
	if e := change.Enrichment; e != nil && e.Severity != nil && e.Severity.IsValid() {
		return *e.Severity
	}
	if s, ok := impactSeverity[change.Update.Impact.Normalize()]; ok {
		return s
	}
	return models.SeverityLow
}

// Confidence adds corroborating signals to a base score and clamps to [0,1].
// Adding a signal never lowers the result.
func Confidence(change models.Change, now time.Time) float64 {
	confidence := BaseConfidence

	if e := change.Enrichment; e != nil && e.ImpactScore != nil {
		confidence = EnrichedFloor + EnrichedWeight*(*e.ImpactScore/maxImpactScore)
	}

	if !change.Transition.IsFirstObservation() {
		confidence += VersionChangeBonus
	}

	if isRecent(change.Update.Date, now) {
		confidence += RecentUpdateBonus
	}

	return clamp(confidence)
}

// Explain renders the factors behind a classification for logs.
func Explain(change models.Change, now time.Time) string {
	var parts []string
	if e := change.Enrichment; e != nil && e.ImpactScore != nil {
		parts = append(parts, fmt.Sprintf("impact_score=%.0f", *e.ImpactScore))
	} else {
		parts = append(parts, "base")
	}
	if e := change.Enrichment; e != nil && e.Severity != nil && e.Severity.IsValid() {
		parts = append(parts, "severity=enriched")
	} else {
		parts = append(parts, "severity=impact:"+string(change.Update.Impact.Normalize()))
	}
	if !change.Transition.IsFirstObservation() {
		parts = append(parts, "version_changed")
	}
	if isRecent(change.Update.Date, now) {
		parts = append(parts, "recent")
	}
	return strings.Join(parts, ",")
}

// ParseDate accepts YYYY-MM-DD and RFC 3339 timestamps, with or without zone.
// Zone-less values are read as UTC.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isRecent reports whether the update date is less than RecentUpdateWindow
// before now. Future dates count as recent.
func isRecent(raw string, now time.Time) bool {
	date, ok := ParseDate(raw)
	if !ok {
		return false
	}
	return now.Sub(date) < RecentUpdateWindow
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
