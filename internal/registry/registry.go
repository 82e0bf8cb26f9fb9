// Package registry holds the static catalog of monitored regulatory sources.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/STRATINT/radar/internal/models"
)

var (
	// ErrNotFound is returned for identifiers outside the catalog.
	ErrNotFound = errors.New("source not found")
	// ErrConfiguration means the catalog cannot support any cycle.
	ErrConfiguration = errors.New("invalid source configuration")
)

//go:embed sources.yaml
var defaultCatalog []byte

type catalogFile struct {
	Sources []models.SourceDescriptor `yaml:"sources"`
}

// Registry is an immutable, ordered set of source descriptors.
type Registry struct {
	order   []string
	sources map[string]models.SourceDescriptor
}

// New validates descriptors and builds a registry. Declaration order is kept.
func New(descriptors []models.SourceDescriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrConfiguration)
	}

	r := &Registry{
		order:   make([]string, 0, len(descriptors)),
		sources: make(map[string]models.SourceDescriptor, len(descriptors)),
	}

	for i, d := range descriptors {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrConfiguration, i)
		}
		if _, dup := r.sources[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrConfiguration, id)
		}
		d.ID = id
		d.Focus = append([]string(nil), d.Focus...)
		r.order = append(r.order, id)
		r.sources[id] = d
	}

	return r, nil
}

// Parse builds a registry from a YAML catalog document.
func Parse(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", ErrConfiguration, err)
	}
	return New(file.Sources)
}

// Default returns the built-in catalog of mining reporting standards.
func Default() (*Registry, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the built-in one when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog %s: %v", ErrConfiguration, path, err)
	}
	return Parse(data)
}

// List returns all descriptors in catalog order.
func (r *Registry) List() []models.SourceDescriptor {
	out := make([]models.SourceDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.copyOf(id))
	}
	return out
}

// IDs returns the identifiers in catalog order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len reports the number of registered sources.
func (r *Registry) Len() int {
	return len(r.order)
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.sources[id]
	return ok
}

// Describe returns the descriptor for id, or ErrNotFound.
func (r *Registry) Describe(id string) (models.SourceDescriptor, error) {
	if !r.Has(id) {
		return models.SourceDescriptor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.copyOf(id), nil
}

func (r *Registry) copyOf(id string) models.SourceDescriptor {
	d := r.sources[id]
	d.Focus = append([]string(nil), d.Focus...)
	return d
}

// Comparison contrasts the focus areas and language of two sources.
type Comparison struct {
	Source1            string   `json:"source1"`
	Source2            string   `json:"source2"`
	Differences        []string `json:"differences"`
	Similarities       []string `json:"similarities"`
	CompatibilityScore float64  `json:"compatibility_score"`
}

// Compare reports focus overlap between two sources. The compatibility score
// is the Jaccard index of the focus sets, rounded to two decimals.
func (r *Registry) Compare(id1, id2 string) (Comparison, error) {
	a, err := r.Describe(id1)
	if err != nil {
		return Comparison{}, err
	}
	b, err := r.Describe(id2)
	if err != nil {
		return Comparison{}, err
	}

	setA := toSet(a.Focus)
	setB := toSet(b.Focus)

	var onlyA, onlyB, common []string
	for f := range setA {
		if setB[f] {
			common = append(common, f)
		} else {
			onlyA = append(onlyA, f)
		}
	}
	for f := range setB {
		if !setA[f] {
			onlyB = append(onlyB, f)
		}
	}
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	sort.Strings(common)

	cmp := Comparison{Source1: a.ID, Source2: b.ID}

	if len(onlyA) > 0 {
		cmp.Differences = append(cmp.Differences, fmt.Sprintf("%s focuses on: %s", a.ID, strings.Join(onlyA, ", ")))
	}
	if len(onlyB) > 0 {
		cmp.Differences = append(cmp.Differences, fmt.Sprintf("%s focuses on: %s", b.ID, strings.Join(onlyB, ", ")))
	}
	if len(common) > 0 {
		cmp.Similarities = append(cmp.Similarities, fmt.Sprintf("Both focus on: %s", strings.Join(common, ", ")))
	}

	if a.Language != b.Language {
		cmp.Differences = append(cmp.Differences, fmt.Sprintf("Different languages: %s vs %s", a.Language, b.Language))
	} else {
		cmp.Similarities = append(cmp.Similarities, fmt.Sprintf("Same language: %s", a.Language))
	}

	if len(cmp.Differences) == 0 {
		cmp.Differences = []string{"No significant differences detected"}
	}
	if len(cmp.Similarities) == 0 {
		cmp.Similarities = []string{"No similarities detected"}
	}

	union := len(onlyA) + len(onlyB) + len(common)
	if union > 0 {
		cmp.CompatibilityScore = math.Round(float64(len(common))/float64(union)*100) / 100
	}

	return cmp, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
