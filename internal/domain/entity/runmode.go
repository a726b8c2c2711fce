package entity

import (
	"fmt"
	"strings"
)

// RunMode selects which table a pipeline run or a display read targets.
type RunMode int

const (
	// RunModeProduction reads and writes the historical_facts table.
	RunModeProduction RunMode = iota
	// RunModeTest reads and writes the historical_facts_test table.
	RunModeTest
)

const (
	productionTable = "historical_facts"
	testTable       = "historical_facts_test"
)

// Table returns the table name for the mode. The result is always one of two
// fixed identifiers and is safe to interpolate into SQL.
func (m RunMode) Table() string {
	if m == RunModeTest {
		return testTable
	}
	return productionTable
}

func (m RunMode) String() string {
	if m == RunModeTest {
		return "test"
	}
	return "production"
}

// Modes returns every run mode, production first.
func Modes() []RunMode {
	return []RunMode{RunModeProduction, RunModeTest}
}

// ParseRunMode parses a mode flag. Empty input means production.
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prod", "production":
		return RunModeProduction, nil
	case "test", "development", "dev":
		return RunModeTest, nil
	default:
		return RunModeProduction, fmt.Errorf("%w: unknown run mode %q", ErrInvalidInput, s)
	}
}
