// Package fact serves the daily fact: the terminal-style HTML page, the JSON
// read API, the RSS feed and the admin-triggered generation endpoint.
package fact

import (
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/usecase/generate"
)

// DTO is the JSON shape of a fact.
type DTO struct {
	ID             int64      `json:"id"`
	HistoricalDate string     `json:"historical_date"`
	PublishDate    string     `json:"publish_date"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Sources        []string   `json:"sources"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func toDTO(f *entity.HistoricalFact) DTO {
	sources := f.Sources
	if sources == nil {
		sources = []string{}
	}
	return DTO{
		ID:             f.ID,
		HistoricalDate: f.HistoricalDate,
		PublishDate:    f.PublishDate,
		Title:          f.Title,
		Description:    f.Description,
		Category:       f.Category,
		Sources:        sources,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// ListResponse wraps the recent facts list.
type ListResponse struct {
	Facts []DTO `json:"facts"`
	Count int   `json:"count"`
}

// GenerateResponse reports a finished admin-triggered run.
type GenerateResponse struct {
	RunID       string   `json:"run_id"`
	Source      string   `json:"source"`
	Model       string   `json:"model,omitempty"`
	Attempts    int      `json:"attempts"`
	State       string   `json:"state"`
	Transitions []string `json:"transitions"`
	DurationMS  int64    `json:"duration_ms"`
	Fact        DTO      `json:"fact"`
}

func toGenerateResponse(res *generate.Result) GenerateResponse {
	transitions := make([]string, len(res.Transitions))
	for i, s := range res.Transitions {
		transitions[i] = string(s)
	}
	return GenerateResponse{
		RunID:       res.RunID,
		Source:      res.Source,
		Model:       res.Model,
		Attempts:    res.Attempts,
		State:       string(res.State),
		Transitions: transitions,
		DurationMS:  res.Duration.Milliseconds(),
		Fact:        toDTO(res.Fact),
	}
}
