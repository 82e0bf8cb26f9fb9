package models

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the importance of a detected change.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists every level, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities for sorting: Critical=0 through Low=3.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// IsValid reports whether s is one of the four levels.
func (s Severity) IsValid() bool {
	return s.Rank() < 4
}

// ParseSeverity accepts any casing of the four level names.
func ParseSeverity(raw string) (Severity, error) {
	for _, s := range Severities {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", raw)
}

// Alert is the externally visible record derived from a Change.
type Alert struct {
	Source          string    `json:"source"`
	Change          string    `json:"change"`
	Severity        Severity  `json:"severity"`
	Confidence      float64   `json:"confidence"`
	Summary         string    `json:"summary"`
	Date            string    `json:"date"`
	ImpactLevel     string    `json:"impact_level"`
	Recommendations []string  `json:"recommendations"`
	RiskKeywords    []string  `json:"risk_keywords"`
	VersionChange   string    `json:"version_change"`
	DetectedAt      time.Time `json:"detected_at"`
	Analysis        *string   `json:"gpt_analysis"`
}

// CycleStatus reports the outcome of a monitoring cycle. Source and
// collaborator failures degrade the result, so a completed cycle is always
// CycleStatusSuccess.
type CycleStatus string

const CycleStatusSuccess CycleStatus = "success"

// CycleResult is the output of one monitoring cycle.
type CycleResult struct {
	ID               string      `json:"id"`
	Status           CycleStatus `json:"status"`
	Timestamp        time.Time   `json:"timestamp"`
	SourcesMonitored []string    `json:"sources_monitored"`
	SourcesSkipped   []string    `json:"sources_skipped,omitempty"`
	AlertsCount      int         `json:"alerts_count"`
	Alerts           []Alert     `json:"alerts"`
	ExecutiveSummary *string     `json:"executive_summary,omitempty"`
	ProcessingTime   *float64    `json:"processing_time,omitempty"` // seconds
}

// CountBySeverity groups alerts by level.
func (r CycleResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, a := range r.Alerts {
		counts[a.Severity]++
	}
	return counts
}
