package fact

import (
	"cmp"
	"maps"
	"slices"

	"historia-diaria/internal/domain/entity"
)

func keys(m map[int][]int) []int {
	return slices.Collect(maps.Keys(m))
}

func sortedDesc(values []int) []int {
	out := slices.Clone(values)
	slices.SortFunc(out, func(a, b int) int { return cmp.Compare(b, a) })
	return out
}

// sortByPublishDateDesc keeps the repository order for facts sharing a date.
func sortByPublishDateDesc(facts []*entity.HistoricalFact) {
	slices.SortStableFunc(facts, func(a, b *entity.HistoricalFact) int {
		return cmp.Compare(b.PublishDate, a.PublishDate)
	})
}
