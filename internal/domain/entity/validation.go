package entity

import "strings"

// ValidateFact checks the invariants a fact must hold before persistence.
// historical_date, title and description are required; dates must use DateLayout.
// A nil Sources slice is normalised to an empty one. The alternating
// name/URL convention of Sources is not checked.
func ValidateFact(f *HistoricalFact) error {
	if f == nil {
		return &ValidationError{Field: "fact", Message: "fact is required"}
	}

	required := []struct {
		field string
		value string
	}{
		{"historical_date", f.HistoricalDate},
		{"title", f.Title},
		{"description", f.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.field + " is required"}
		}
	}

	if _, err := ParseDate(strings.TrimSpace(f.HistoricalDate)); err != nil {
		return &ValidationError{Field: "historical_date", Message: "historical_date must be YYYY-MM-DD"}
	}
	if f.PublishDate != "" {
		if _, err := ParseDate(f.PublishDate); err != nil {
			return &ValidationError{Field: "publish_date", Message: "publish_date must be YYYY-MM-DD"}
		}
	}

	if f.Sources == nil {
		f.Sources = []string{}
	}
	return nil
}
