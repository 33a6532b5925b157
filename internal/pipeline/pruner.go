package pipeline

import (
	"sort"

	"diary-service/internal/models"
)

// PruneResult carries the pruned record set and the category partition. The
// category lists are exposed for observability; they drive no further
// filtering downstream.
type PruneResult struct {
	Records models.RecordSet
	// Retained and Removed partition the distinct categories present in the
	// input: count >= threshold retains, count < threshold removes. Both
	// sides use the same threshold value.
	Retained []string
	Removed  []string
	// PrunedRows are the rows whose category fell below the threshold.
	PrunedRows models.RecordSet
}

// PruneCategories drops rows whose Category occurs fewer than minCount times
// in the input. Category lists are sorted by descending count (ties by name)
// so responses are deterministic.
func PruneCategories(in models.RecordSet, minCount int) PruneResult {
	counts := make(map[string]int)
	for _, r := range in {
		counts[r.Category]++
	}

	res := PruneResult{
		Records:    make(models.RecordSet, 0, len(in)),
		Retained:   []string{},
		Removed:    []string{},
		PrunedRows: models.RecordSet{},
	}
	for cat, n := range counts {
		if n >= minCount {
			res.Retained = append(res.Retained, cat)
		} else {
			res.Removed = append(res.Removed, cat)
		}
	}
	sortByCount := func(names []string) {
		sort.Slice(names, func(i, j int) bool {
			if counts[names[i]] != counts[names[j]] {
				return counts[names[i]] > counts[names[j]]
			}
			return names[i] < names[j]
		})
	}
	sortByCount(res.Retained)
	sortByCount(res.Removed)

	for _, r := range in {
		if counts[r.Category] >= minCount {
			res.Records = append(res.Records, r)
		} else {
			res.PrunedRows = append(res.PrunedRows, r)
		}
	}
	return res
}
