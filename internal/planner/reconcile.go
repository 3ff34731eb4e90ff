package planner

import (
	"sort"

	"github.com/martinsuchenak/subnetplan/internal/model"
)

// Reconcile partitions the schema's entries against a prior snapshot.
// Entries found in the snapshot are "old": they keep their stored sequence
// id and metadata verbatim (the schema's own metadata is discarded) and are
// returned sorted ascending by id so a re-run replays them in the exact
// order they were originally allocated. Entries not in the snapshot are
// "new": they stay in schema declaration order and receive fresh ids
// starting at max(old ids)+1.
func Reconcile(s *model.Schema, prior *model.Snapshot) (old, fresh []model.Entry) {
	maxSeq := 0
	for _, e := range s.Entries() {
		if pa, ok := prior.Lookup(e.Key()); ok {
			e.Seq = pa.Seq
			e.Metadata = pa.Metadata
			if pa.Seq > maxSeq {
				maxSeq = pa.Seq
			}
			old = append(old, e)
		} else {
			fresh = append(fresh, e)
		}
	}

	sort.SliceStable(old, func(i, j int) bool { return old[i].Seq < old[j].Seq })

	next := maxSeq + 1
	for i := range fresh {
		fresh[i].Seq = next
		next++
	}
	return old, fresh
}
