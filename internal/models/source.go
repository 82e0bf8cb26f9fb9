package models

import (
	"strings"
	"time"
)

// SourceDescriptor describes one monitored regulatory standard or body.
type SourceDescriptor struct {
	ID              string   `json:"id" yaml:"id"`
	Country         string   `json:"country" yaml:"country"`
	FullName        string   `json:"full_name" yaml:"full_name"`
	URL             string   `json:"url" yaml:"url"`
	Focus           []string `json:"focus" yaml:"focus"`
	Language        string   `json:"language" yaml:"language"`
	UpdateFrequency string   `json:"update_frequency" yaml:"update_frequency"`
}

// GetDisplayName returns a human-readable label for the source.
func (s SourceDescriptor) GetDisplayName() string {
	if s.FullName != "" {
		return s.FullName + " (" + s.ID + ")"
	}
	return s.ID
}

// ImpactHint is the coarse impact label published alongside a raw update.
type ImpactHint string

const (
	ImpactLow      ImpactHint = "low"
	ImpactMedium   ImpactHint = "medium"
	ImpactHigh     ImpactHint = "high"
	ImpactCritical ImpactHint = "critical"
)

// Normalize lowercases the hint. Unrecognised values are kept as-is so the
// classifier can treat them as unknown.
func (h ImpactHint) Normalize() ImpactHint {
	return ImpactHint(strings.ToLower(strings.TrimSpace(string(h))))
}

// RawUpdate is one update record published by a source.
type RawUpdate struct {
	Title   string     `json:"title"`
	Date    string     `json:"date"` // usually YYYY-MM-DD, may be malformed
	Impact  ImpactHint `json:"impact"`
	Summary string     `json:"summary"`
	Type    string     `json:"type"`
}

// Snapshot is the result of fetching a source once.
type Snapshot struct {
	SourceID  string      `json:"source_id"`
	Version   string      `json:"version"`
	Updates   []RawUpdate `json:"latest_updates"`
	FetchedAt time.Time   `json:"fetched_at"`
}
