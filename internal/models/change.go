package models

import "time"

// NoVersion marks the "from" side of a transition when a source has never
// been observed before.
const NoVersion = "none"

// VersionTransition records the old and new version tags of a source.
type VersionTransition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IsFirstObservation reports whether there was no cached version.
func (t VersionTransition) IsFirstObservation() bool {
	return t.From == "" || t.From == NoVersion
}

func (t VersionTransition) String() string {
	from := t.From
	if from == "" {
		from = NoVersion
	}
	return from + " → " + t.To
}

// Enrichment holds the optional annotations produced by deep analysis.
// Pointer fields are nil when the analysis did not supply them.
type Enrichment struct {
	ImpactScore     *float64  `json:"impact_score,omitempty"` // 0-100
	Severity        *Severity `json:"severity,omitempty"`
	Urgency         string    `json:"urgency,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	RiskKeywords    []string  `json:"risk_keywords,omitempty"`
	Explanation     string    `json:"explanation,omitempty"`
}

// Change is a single raw update surfaced by a version transition.
type Change struct {
	SourceID   string            `json:"source"`
	Update     RawUpdate         `json:"update"`
	DetectedAt time.Time         `json:"detected_at"`
	Transition VersionTransition `json:"version_change"`
	Enrichment *Enrichment       `json:"enrichment,omitempty"`
}
