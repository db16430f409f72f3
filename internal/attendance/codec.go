package attendance

import "sort"

// Encode compresses a roster's attendance flags into the index snapshot sent
// over the sync channel. The same flat integer array is the bulk-import shape
// accepted by the event store.
func Encode(r *Roster) []int {
	return r.SnapshotIndices()
}

// Merge unions two index snapshots into one ascending, deduplicated snapshot.
// Merging an inbound remote snapshot with the local one before overwriting
// keeps a just-published local change alive when an older remote snapshot
// arrives first. Commutative: Merge(a, b) == Merge(b, a).
func Merge(a, b []int) []int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(a)+len(b))
	merged := make([]int, 0, len(a)+len(b))
	for _, indices := range [][]int{a, b} {
		for _, i := range indices {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			merged = append(merged, i)
		}
	}

	sort.Ints(merged)

	return merged
}
