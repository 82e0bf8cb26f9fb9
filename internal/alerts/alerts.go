// Package alerts turns classified changes into ranked alert records.
package alerts

import (
	"math"
	"sort"
	"time"

	"github.com/STRATINT/radar/internal/classifier"
	"github.com/STRATINT/radar/internal/models"
)

// Assemble classifies every change and returns alerts ordered by severity
// (Critical first) and then by confidence, highest first. Ties keep the input
// order.
func Assemble(changes []models.Change, now time.Time) []models.Alert {
	out := make([]models.Alert, 0, len(changes))
	for _, change := range changes {
		out = append(out, Build(change, now))
	}
	Sort(out)
	return out
}

// Build converts a single change into an alert.
func Build(change models.Change, now time.Time) models.Alert {
	severity, confidence := classifier.Classify(change, now)

	impact := string(change.Update.Impact.Normalize())
	if impact == "" {
		impact = string(models.ImpactLow)
	}

	alert := models.Alert{
		Source:          change.SourceID,
		Change:          change.Update.Title,
		Severity:        severity,
		Confidence:      roundConfidence(confidence),
		Summary:         change.Update.Summary,
		Date:            change.Update.Date,
		ImpactLevel:     impact,
		Recommendations: []string{},
		RiskKeywords:    []string{},
		VersionChange:   change.Transition.String(),
		DetectedAt:      change.DetectedAt,
	}

	if e := change.Enrichment; e != nil {
		if len(e.Recommendations) > 0 {
			alert.Recommendations = append(alert.Recommendations, e.Recommendations...)
		}
		if len(e.RiskKeywords) > 0 {
			alert.RiskKeywords = append(alert.RiskKeywords, e.RiskKeywords...)
		}
		if e.Explanation != "" {
			explanation := e.Explanation
			alert.Analysis = &explanation
		}
	}

	return alert
}

// Sort orders alerts in place by severity rank then descending confidence.
func Sort(list []models.Alert) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := list[i].Severity.Rank(), list[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return list[i].Confidence > list[j].Confidence
	})
}

func roundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}
