package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSourceDescriptor_GetDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		source   SourceDescriptor
		expected string
	}{
		{
			name:     "Full name present",
			source:   SourceDescriptor{ID: "JORC", FullName: "Joint Ore Reserves Committee"},
			expected: "Joint Ore Reserves Committee (JORC)",
		},
		{
			name:     "Only ID present",
			source:   SourceDescriptor{ID: "ANM"},
			expected: "ANM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.GetDisplayName(); got != tt.expected {
				t.Errorf("GetDisplayName() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestImpactHint_Normalize(t *testing.T) {
	if got := ImpactHint(" HIGH ").Normalize(); got != ImpactHigh {
		t.Errorf("Normalize() = %q, want %q", got, ImpactHigh)
	}
	if got := ImpactHint("severe").Normalize(); got != "severe" {
		t.Errorf("unknown hints should pass through, got %q", got)
	}
}

func TestVersionTransition_String(t *testing.T) {
	tests := []struct {
		name       string
		transition VersionTransition
		expected   string
		first      bool
	}{
		{"First observation", VersionTransition{From: NoVersion, To: "v1"}, "none → v1", true},
		{"Empty from", VersionTransition{To: "v1"}, "none → v1", true},
		{"Real transition", VersionTransition{From: "v2025.09", To: "v2025.10"}, "v2025.09 → v2025.10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.transition.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
			if got := tt.transition.IsFirstObservation(); got != tt.first {
				t.Errorf("IsFirstObservation() = %v, want %v", got, tt.first)
			}
		})
	}
}

func TestSeverity_Rank(t *testing.T) {
	for i, s := range Severities {
		if s.Rank() != i {
			t.Errorf("%s rank = %d, want %d", s, s.Rank(), i)
		}
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}

	if Severity("Severe").IsValid() {
		t.Error("free-text severity must not be valid")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		raw     string
		want    Severity
		wantErr bool
	}{
		{"Critical", SeverityCritical, false},
		{"high", SeverityHigh, false},
		{" MEDIUM ", SeverityMedium, false},
		{"low", SeverityLow, false},
		{"urgent", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSeverity(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAlert_JSONKeepsEmptySlices(t *testing.T) {
	alert := Alert{
		Source:          "ANM",
		Severity:        SeverityHigh,
		Recommendations: []string{},
		RiskKeywords:    []string{},
	}

	data, err := json.Marshal(alert)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	body := string(data)
	if !strings.Contains(body, `"recommendations":[]`) {
		t.Errorf("expected empty recommendations array, got %s", body)
	}
	if strings.Contains(body, "gpt_analysis") {
		t.Errorf("analysis should be omitted when empty, got %s", body)
	}
}

func TestCycleResult_CountBySeverity(t *testing.T) {
	result := CycleResult{Alerts: []Alert{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
	}}

	counts := result.CountBySeverity()
	if counts[SeverityHigh] != 2 || counts[SeverityLow] != 1 || counts[SeverityCritical] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
