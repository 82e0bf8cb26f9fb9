package enrichment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/STRATINT/radar/internal/models"
)

// PromptTemplates holds the system prompts for analysis and summaries.
type PromptTemplates struct {
	AnalysisSystemPrompt string
	SummarySystemPrompt  string
}

// NewPromptTemplates returns the built-in prompts.
func NewPromptTemplates() *PromptTemplates {
	return &PromptTemplates{
		AnalysisSystemPrompt: "You are a regulatory compliance analyst specialising in mining reporting standards. Output only valid JSON.",
		SummarySystemPrompt:  "You are an expert in global mining regulation advising executives.",
	}
}

type changeContext struct {
	Source        string `json:"source"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	Impact        string `json:"impact"`
	Summary       string `json:"summary"`
	Type          string `json:"type,omitempty"`
	VersionChange string `json:"version_change"`
}

// BuildAnalysisPrompt lists the changes and asks for one analysis entry per
// change, in the same order.
func (p *PromptTemplates) BuildAnalysisPrompt(changes []models.Change) (string, error) {
	items := make([]changeContext, 0, len(changes))
	for _, c := range changes {
		items = append(items, changeContext{
			Source:        c.SourceID,
			Title:         c.Update.Title,
			Date:          c.Update.Date,
			Impact:        string(c.Update.Impact),
			Summary:       c.Update.Summary,
			Type:          c.Update.Type,
			VersionChange: c.Transition.String(),
		})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode changes: %w", err)
	}

	return fmt.Sprintf(`Analyse the following regulatory changes detected in international mining reporting standards and provide for each one:
1. Operational impact assessment (0-100)
2. Severity (Low, Medium, High, Critical)
3. Urgency (for example "30 days")
4. Recommended actions
5. Risk keywords

Return exactly %d entries in the same order as the input.

Detected changes:
%s

Respond in JSON with this format:
{
  "analysis": [
    {
      "source": "JORC",
      "impact_score": 85,
      "severity": "High",
      "urgency": "30 days",
      "recommendations": ["action 1", "action 2"],
      "risk_keywords": ["keyword1", "keyword2"],
      "explanation": "detailed analysis"
    }
  ]
}`, len(items), data), nil
}

// BuildSummaryPrompt asks for an executive summary of the cycle's alerts.
func (p *PromptTemplates) BuildSummaryPrompt(alerts []models.Alert) (string, error) {
	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode alerts: %w", err)
	}

	return fmt.Sprintf(`Write a professional executive summary (3-5 paragraphs) of the regulatory changes below.

Cover:
- Overall picture
- Main risks and opportunities
- Action priorities
- Impact across jurisdictions

Data:
%s

Be objective, technical and focused on strategic decisions.`, data), nil
}

type analysisResponse struct {
	Analysis []analysisItem `json:"analysis"`
}

type analysisItem struct {
	Source          string   `json:"source"`
	ImpactScore     *float64 `json:"impact_score"`
	Severity        string   `json:"severity"`
	Urgency         string   `json:"urgency"`
	Recommendations []string `json:"recommendations"`
	RiskKeywords    []string `json:"risk_keywords"`
	Explanation     string   `json:"explanation"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*({.+})\\s*```")

// ParseAnalysis decodes a model response into enrichments aligned with n
// changes. Entries missing from the response are nil. A severity outside the
// four levels is dropped so the impact hint decides.
func ParseAnalysis(raw string, n int) ([]*models.Enrichment, error) {
	payload := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(payload); len(m) > 1 {
		payload = m[1]
	}
	if payload == "" {
		return nil, fmt.Errorf("empty analysis response")
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w (first 200 chars: %.200s)", err, raw)
	}
	if len(resp.Analysis) == 0 {
		return nil, fmt.Errorf("analysis response has no entries")
	}

	out := make([]*models.Enrichment, n)
	for i := 0; i < n && i < len(resp.Analysis); i++ {
		item := resp.Analysis[i]
		e := &models.Enrichment{
			ImpactScore:     item.ImpactScore,
			Urgency:         item.Urgency,
			Recommendations: item.Recommendations,
			RiskKeywords:    item.RiskKeywords,
			Explanation:     item.Explanation,
		}
		if sev, err := models.ParseSeverity(item.Severity); err == nil {
			e.Severity = &sev
		}
		out[i] = e
	}
	return out, nil
}
