package api

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AnalyzeRequest is the body of POST /api/radar/analyze.
type AnalyzeRequest struct {
	Sources   []string `json:"sources"`
	Deep      bool     `json:"deep"`
	Summarize bool     `json:"summarize"`
}

// CompareRequest is the body of POST /api/radar/compare.
type CompareRequest struct {
	Source1 string `json:"source1"`
	Source2 string `json:"source2"`
}

// ValidateAnalyzeRequest rejects identifiers outside the catalog and
// requests naming more sources than exist.
func ValidateAnalyzeRequest(req AnalyzeRequest, known func(string) bool, valid []string) error {
	if len(req.Sources) > len(valid) {
		return ValidationError{Field: "sources", Message: fmt.Sprintf("at most %d sources per request", len(valid))}
	}
	for _, id := range req.Sources {
		if strings.TrimSpace(id) == "" {
			return ValidationError{Field: "sources", Message: "source identifiers must not be empty"}
		}
		if !known(id) {
			return ValidationError{
				Field:   "sources",
				Message: fmt.Sprintf("invalid source %q; valid sources: %s", id, strings.Join(valid, ", ")),
			}
		}
	}
	return nil
}

// ValidateCompareRequest requires both identifiers.
func ValidateCompareRequest(req CompareRequest) error {
	if strings.TrimSpace(req.Source1) == "" {
		return ValidationError{Field: "source1", Message: "source1 is required"}
	}
	if strings.TrimSpace(req.Source2) == "" {
		return ValidationError{Field: "source2", Message: "source2 is required"}
	}
	return nil
}
