// Package entity defines the core domain entities and validation logic for the application.
// It contains the HistoricalFact record published once per day, the advisory category set,
// the run mode that selects the backing table, and domain-specific errors.
package entity

import "time"

// DateLayout is the calendar date format used for historical_date and publish_date.
const DateLayout = "2006-01-02"

// HistoricalFact represents one "fact of the day" record.
// It is created once by the generation pipeline and never mutated afterwards.
type HistoricalFact struct {
	ID             int64      `json:"id" yaml:"-"`
	HistoricalDate string     `json:"historical_date" yaml:"historical_date"`
	PublishDate    string     `json:"publish_date" yaml:"-"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	Category       string     `json:"category" yaml:"category"`
	Sources        []string   `json:"sources" yaml:"sources"`
	CreatedAt      time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Clone returns a deep copy of the fact so callers can stamp fields without
// touching shared data.
func (f HistoricalFact) Clone() HistoricalFact {
	c := f
	if f.Sources != nil {
		c.Sources = append([]string(nil), f.Sources...)
	}
	if f.UpdatedAt != nil {
		t := *f.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// FormatDate renders t as a calendar date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
