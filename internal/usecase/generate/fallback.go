package generate

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"historia-diaria/internal/domain/entity"
)

// FallbackSelector hands out a preverified fact when the AI path is exhausted.
// The list is copied on construction and never modified afterwards.
type FallbackSelector struct {
	facts []entity.HistoricalFact

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFallbackSelector copies facts and returns a selector. rnd may be nil.
func NewFallbackSelector(facts []entity.HistoricalFact, rnd *rand.Rand) (*FallbackSelector, error) {
	if len(facts) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrFallbackTooSmall, len(facts))
	}
	copied := make([]entity.HistoricalFact, len(facts))
	for i, f := range facts {
		if err := entity.ValidateFact(&f); err != nil {
			return nil, fmt.Errorf("fallback fact %d: %w", i, err)
		}
		copied[i] = f.Clone()
	}
	if rnd == nil {
		// #nosec G404 -- selection does not need cryptographic randomness.
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &FallbackSelector{facts: copied, rnd: rnd}, nil
}

// Len returns the number of available facts.
func (s *FallbackSelector) Len() int { return len(s.facts) }

// Select returns a copy of a uniformly chosen fact with publish_date set to date.
func (s *FallbackSelector) Select(date time.Time) entity.HistoricalFact {
	s.mu.Lock()
	idx := s.rnd.Intn(len(s.facts))
	s.mu.Unlock()

	f := s.facts[idx].Clone()
	f.ID = 0
	f.PublishDate = entity.FormatDate(date)
	return f
}
