package pipeline

import "diary-service/internal/models"

// Deduplicate removes exact duplicates on the composite key
// (From, Until, Ring, Category, Description). For each key group the first
// record in input order survives; every other member of the group lands in
// the removed complement with its full row content intact, so accepted plus
// removed is exactly the input as a multiset.
func Deduplicate(in models.RecordSet) (accepted, removed models.RecordSet) {
	seen := make(map[string]struct{}, len(in))
	accepted = make(models.RecordSet, 0, len(in))
	removed = models.RecordSet{}

	for _, r := range in {
		key := r.Key()
		if _, dup := seen[key]; dup {
			removed = append(removed, r)
			continue
		}
		seen[key] = struct{}{}
		accepted = append(accepted, r)
	}
	return accepted, removed
}
