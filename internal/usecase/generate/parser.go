package generate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"historia-diaria/internal/domain/entity"
)

var normalizer = strings.NewReplacer(
	"```json", "",
	"```JSON", "",
	"```", "",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u201e", `"`,
	"\u201f", `"`,
	"\u00ab", `"`,
	"\u00bb", `"`,
	"\u2018", "'",
	"\u2019", "'",
	"\u201a", "'",
	"\u201b", "'",
	"\u00a0", " ",
	"\u202f", " ",
	"\u2007", " ",
	"\ufeff", "",
)

// Normalize strips code fences, folds smart quotes to ASCII, replaces
// non-breaking spaces and trims the result.
func Normalize(raw string) string {
	return strings.TrimSpace(normalizer.Replace(raw))
}

// Isolate returns the text from the first '{' to the last '}'.
func Isolate(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return "", ErrNoJSONFound
	}
	return text[start : end+1], nil
}

// Parser converts model output into a validated fact.
type Parser struct {
	strategies []Strategy
	metrics    MetricsRecorder
}

// NewParser returns a parser over the default strategy order.
func NewParser(metrics MetricsRecorder) *Parser {
	if metrics == nil {
		metrics = NewPrometheusMetrics()
	}
	return &Parser{strategies: Strategies, metrics: metrics}
}

// Parse is ParseResponse with metrics.
func (p *Parser) Parse(raw string, publishDate time.Time) (*entity.HistoricalFact, error) {
	fact, strategy, err := parseWith(p.strategies, raw, publishDate)
	if strategy != "" {
		p.metrics.RecordParseStrategy(strategy)
	}
	return fact, err
}

// ParseResponse normalizes raw, isolates the JSON object, tries every
// strategy in order and validates the first object decoded. publish_date is
// always set to publishDate.
func ParseResponse(raw string, publishDate time.Time) (*entity.HistoricalFact, error) {
	fact, _, err := parseWith(Strategies, raw, publishDate)
	return fact, err
}

func parseWith(strategies []Strategy, raw string, publishDate time.Time) (*entity.HistoricalFact, string, error) {
	text, err := Isolate(Normalize(raw))
	if err != nil {
		return nil, "", err
	}

	var (
		obj      map[string]any
		used     string
		lastErr  error
		lastName string
	)
	for _, s := range strategies {
		obj, lastErr = s.Parse(text)
		if lastErr == nil {
			used = s.Name
			break
		}
		lastName = s.Name
	}
	if obj == nil {
		return nil, "", &UnparseableError{Strategy: lastName, Err: lastErr}
	}

	fact := factFromObject(obj)
	for _, field := range []struct{ name, value string }{
		{"historical_date", fact.HistoricalDate},
		{"title", fact.Title},
		{"description", fact.Description},
	} {
		if field.value == "" {
			return nil, used, fmt.Errorf("%w: %s", ErrMissingRequiredField, field.name)
		}
	}

	fact.PublishDate = entity.FormatDate(publishDate)
	if err := entity.ValidateFact(fact); err != nil {
		return nil, used, fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	return fact, used, nil
}

func factFromObject(obj map[string]any) *entity.HistoricalFact {
	return &entity.HistoricalFact{
		HistoricalDate: stringField(obj["historical_date"]),
		Title:          stringField(obj["title"]),
		Description:    stringField(obj["description"]),
		Category:       stringField(obj["category"]),
		Sources:        sourcesField(obj["sources"]),
	}
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func sourcesField(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringField(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return []string{}
}

// IsMalformedOutput reports whether err came from parsing or validating model output.
func IsMalformedOutput(err error) bool {
	return errors.Is(err, ErrNoJSONFound) ||
		errors.Is(err, ErrUnparseableResponse) ||
		errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidField)
}
