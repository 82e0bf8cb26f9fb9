package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/STRATINT/radar/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default() returned error: %v", err)
	}

	want := []string{"ANM", "JORC", "NI43-101", "PERC", "SAMREC"}
	got := reg.IDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d sources, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("source %d = %q, want %q", i, got[i], want[i])
		}
	}

	for _, d := range reg.List() {
		if d.Country == "" || d.FullName == "" || d.Language == "" || d.UpdateFrequency == "" || len(d.Focus) == 0 {
			t.Errorf("incomplete descriptor: %+v", d)
		}
	}
}

func TestDescribe(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default() returned error: %v", err)
	}

	d, err := reg.Describe("ANM")
	if err != nil {
		t.Fatalf("Describe(ANM) returned error: %v", err)
	}
	if d.Country != "Brazil" || d.Language != "pt-BR" {
		t.Errorf("unexpected descriptor: %+v", d)
	}

	if _, err := reg.Describe("INVALID"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if reg.Has("INVALID") {
		t.Error("Has(INVALID) should be false")
	}
}

func TestDescriptorsAreCopies(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default() returned error: %v", err)
	}

	d, _ := reg.Describe("JORC")
	d.Focus[0] = "mutated"

	again, _ := reg.Describe("JORC")
	if again.Focus[0] == "mutated" {
		t.Fatal("registry descriptors must not be mutable through returned values")
	}
}

func TestNewRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []models.SourceDescriptor
	}{
		{"empty", nil},
		{"missing id", []models.SourceDescriptor{{Country: "Brazil"}}},
		{"duplicate", []models.SourceDescriptor{{ID: "ANM"}, {ID: "ANM"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.descriptors)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("sources: [")); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	doc := "sources:\n  - id: TEST\n    country: Nowhere\n    focus: [a]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if reg.Len() != 1 || !reg.Has("TEST") {
		t.Fatalf("unexpected registry contents: %v", reg.IDs())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing file, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default() returned error: %v", err)
	}

	cmp, err := reg.Compare("JORC", "SAMREC")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}

	if cmp.CompatibilityScore != 0.5 {
		t.Errorf("expected compatibility 0.5, got %v", cmp.CompatibilityScore)
	}
	if len(cmp.Similarities) == 0 || !strings.Contains(cmp.Similarities[0], "mineral resources") {
		t.Errorf("expected shared focus in similarities, got %v", cmp.Similarities)
	}

	foundLanguage := false
	for _, d := range cmp.Differences {
		if strings.Contains(d, "en-AU vs en-ZA") {
			foundLanguage = true
		}
	}
	if !foundLanguage {
		t.Errorf("expected language difference, got %v", cmp.Differences)
	}

	if _, err := reg.Compare("JORC", "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompareSameSource(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default() returned error: %v", err)
	}

	cmp, err := reg.Compare("ANM", "ANM")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if cmp.CompatibilityScore != 1 {
		t.Errorf("expected compatibility 1, got %v", cmp.CompatibilityScore)
	}
	if len(cmp.Differences) != 1 || cmp.Differences[0] != "No significant differences detected" {
		t.Errorf("unexpected differences: %v", cmp.Differences)
	}
}
