package planner

import (
	"testing"

	"github.com/martinsuchenak/subnetplan/internal/model"
)

func reconcileSchema(names ...string) *model.Schema {
	n := model.Node{Name: "node-a"}
	for _, name := range names {
		n.Entries = append(n.Entries, model.Entry{
			Node:    "node-a",
			Name:    name,
			Label:   "internal",
			Request: model.Request{PrefixLen: 26},
		})
	}
	return &model.Schema{Nodes: []model.Node{n}}
}

func priorWith(seqs map[string]int) *model.Snapshot {
	s := &model.Snapshot{Entries: make(map[model.EntryKey]model.Allocation)}
	for name, seq := range seqs {
		s.Entries[model.EntryKey{Node: "node-a", Name: name}] = model.Allocation{
			Name: name,
			Seq:  seq,
			Metadata: map[string]any{
				"stored": name,
			},
		}
	}
	return s
}

func TestReconcileNoPrior(t *testing.T) {
	old, fresh := Reconcile(reconcileSchema("x", "y"), nil)

	if len(old) != 0 {
		t.Errorf("expected no old entries, got %d", len(old))
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 new entries, got %d", len(fresh))
	}
	if fresh[0].Seq != 1 || fresh[1].Seq != 2 {
		t.Errorf("new ids = %d, %d, want 1, 2", fresh[0].Seq, fresh[1].Seq)
	}
}

func TestReconcilePartition(t *testing.T) {
	// z was allocated before y on earlier runs, so it replays first even
	// though the schema now declares y ahead of it.
	prior := priorWith(map[string]int{"y": 7, "z": 3})

	old, fresh := Reconcile(reconcileSchema("x", "y", "z"), prior)

	if len(old) != 2 || len(fresh) != 1 {
		t.Fatalf("partition = %d old, %d new, want 2 and 1", len(old), len(fresh))
	}
	if old[0].Name != "z" || old[1].Name != "y" {
		t.Errorf("old order = %s, %s, want z, y", old[0].Name, old[1].Name)
	}

	// Old entries take their stored metadata verbatim.
	if old[0].Metadata["stored"] != "z" {
		t.Errorf("old metadata not taken from the snapshot: %v", old[0].Metadata)
	}

	// New ids continue above the highest stored one.
	if fresh[0].Name != "x" || fresh[0].Seq != 8 {
		t.Errorf("new entry = %s seq %d, want x seq 8", fresh[0].Name, fresh[0].Seq)
	}
}

func TestReconcileRemovedEntriesFreeTheirIds(t *testing.T) {
	// A schema that no longer declares the entry with the highest id: the
	// next new id still starts above the highest id of a *surviving* entry.
	prior := priorWith(map[string]int{"x": 1, "gone": 9})

	old, fresh := Reconcile(reconcileSchema("x", "y"), prior)

	if len(old) != 1 || old[0].Name != "x" {
		t.Fatalf("expected only x to survive, got %v", old)
	}
	if fresh[0].Seq != 2 {
		t.Errorf("new id = %d, want 2 (ids of removed entries are reusable)", fresh[0].Seq)
	}
}
