package model

import (
	"errors"
	"testing"
)

func TestRequestKind(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    RequestKind
		wantErr bool
	}{
		{"subnet", Request{PrefixLen: 26}, RequestSubnet, false},
		{"range", Request{From: ".mgmt", Size: 4}, RequestRange, false},
		{"range from back", Request{From: "node-a.mgmt", Size: -2}, RequestRange, false},
		{"empty", Request{}, 0, true},
		{"both variants", Request{PrefixLen: 26, From: ".mgmt", Size: 2}, 0, true},
		{"from without size", Request{From: ".mgmt"}, 0, true},
		{"size without from", Request{Size: 4}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Kind()
			if tt.wantErr {
				var ue *UnsupportedRequestError
				if !errors.As(err, &ue) {
					t.Fatalf("expected UnsupportedRequestError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Kind() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotLookupNilSafe(t *testing.T) {
	var s *Snapshot
	if _, ok := s.Lookup(EntryKey{Node: "n", Name: "e"}); ok {
		t.Error("nil snapshot should report no entries")
	}
}

func TestSchemaEntriesOrder(t *testing.T) {
	s := &Schema{Nodes: []Node{
		{Name: "b", Entries: []Entry{{Node: "b", Name: "e1"}, {Node: "b", Name: "e2"}}},
		{Name: "a", Entries: []Entry{{Node: "a", Name: "e3"}}},
	}}

	got := s.Entries()
	if len(got) != 3 || got[0].Name != "e1" || got[1].Name != "e2" || got[2].Name != "e3" {
		t.Errorf("Entries() order = %v, want declaration order", got)
	}
}
