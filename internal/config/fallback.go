package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"historia-diaria/internal/domain/entity"
)

//go:embed fallback_facts.yaml
var defaultFallbackFacts []byte

// FallbackFactsPathEnv overrides the embedded fallback list with a YAML file.
const FallbackFactsPathEnv = "FALLBACK_FACTS_PATH"

// minFallbackFacts is the smallest usable fallback list.
const minFallbackFacts = 2

type fallbackDocument struct {
	Facts []entity.HistoricalFact `yaml:"facts"`
}

// LoadFallbackFacts returns the fallback list from FALLBACK_FACTS_PATH when
// set, otherwise the embedded default.
func LoadFallbackFacts() ([]entity.HistoricalFact, error) {
	if path := os.Getenv(FallbackFactsPathEnv); path != "" {
		return LoadFallbackFactsFile(path)
	}
	return ParseFallbackFacts(defaultFallbackFacts)
}

// LoadFallbackFactsFile reads a fallback YAML document from path.
// The path parameter is expected to come from a trusted source (environment or CLI flag).
func LoadFallbackFactsFile(path string) ([]entity.HistoricalFact, error) {
	// #nosec G304 -- path comes from operator configuration, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback facts file: %w", err)
	}
	return ParseFallbackFacts(data)
}

// ParseFallbackFacts decodes and validates a fallback YAML document.
func ParseFallbackFacts(data []byte) ([]entity.HistoricalFact, error) {
	var doc fallbackDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fallback facts: %w", err)
	}

	if len(doc.Facts) < minFallbackFacts {
		return nil, fmt.Errorf("fallback facts validation failed: need at least %d facts, got %d", minFallbackFacts, len(doc.Facts))
	}
	for i := range doc.Facts {
		if err := entity.ValidateFact(&doc.Facts[i]); err != nil {
			return nil, fmt.Errorf("fallback facts validation failed: fact %d (%q): %w", i, doc.Facts[i].Title, err)
		}
	}
	return doc.Facts, nil
}
