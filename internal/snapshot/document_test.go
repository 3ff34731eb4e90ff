package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"inet.af/netaddr"

	"github.com/martinsuchenak/subnetplan/internal/model"
)

func testPlan() *model.Plan {
	vlan := 100
	gw := netaddr.MustParseIP("10.0.0.62")
	return &model.Plan{
		Nodes: []model.NodeAllocations{{
			Node:     "node-a",
			Metadata: map[string]any{"site": "fra1"},
			Entries: []model.Allocation{
				{
					Name:    "mgmt",
					Seq:     1,
					Kind:    model.KindSubnet,
					Label:   "internal",
					VLAN:    &vlan,
					CIDR:    netaddr.MustParseIPPrefix("10.0.0.0/26"),
					Range:   netaddr.IPRangeFrom(netaddr.MustParseIP("10.0.0.1"), gw),
					Gateway: gw,
				},
				{
					Name:  "vips",
					Seq:   2,
					Kind:  model.KindIPRange,
					CIDR:  netaddr.MustParseIPPrefix("10.0.0.0/26"),
					Range: netaddr.IPRangeFrom(netaddr.MustParseIP("10.0.0.1"), netaddr.MustParseIP("10.0.0.4")),
				},
			},
		}},
	}
}

func TestFromPlan(t *testing.T) {
	doc := FromPlan(testPlan())

	nd, ok := doc["node-a"]
	if !ok {
		t.Fatal("document is missing node-a")
	}
	if nd.Metadata["site"] != "fra1" {
		t.Errorf("node metadata lost: %v", nd.Metadata)
	}

	mgmt := nd.IPAM["mgmt"]
	if mgmt.CIDR != "10.0.0.0/26" || mgmt.PrefixLen != 26 || mgmt.Netmask != "255.255.255.192" {
		t.Errorf("unexpected mgmt network fields: %+v", mgmt)
	}
	if mgmt.IPRange.Str != "10.0.0.1-10.0.0.62" || mgmt.IPRange.Size != 62 {
		t.Errorf("unexpected mgmt range: %+v", mgmt.IPRange)
	}
	if mgmt.Gateway == nil || *mgmt.Gateway != "10.0.0.62" {
		t.Errorf("unexpected mgmt gateway: %v", mgmt.Gateway)
	}
	if mgmt.VLAN == nil || *mgmt.VLAN != 100 {
		t.Errorf("unexpected mgmt vlan: %v", mgmt.VLAN)
	}

	// No gateway and no vlan serialize as explicit nulls, not absent keys.
	vips := nd.IPAM["vips"]
	if vips.Gateway != nil || vips.VLAN != nil {
		t.Errorf("vips should carry null gateway and vlan: %+v", vips)
	}

	if doc.Count() != 2 {
		t.Errorf("Count() = %d, want 2", doc.Count())
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := FromPlan(testPlan())

	data, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	snap, err := back.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	mgmt, ok := snap.Lookup(model.EntryKey{Node: "node-a", Name: "mgmt"})
	if !ok {
		t.Fatal("snapshot is missing node-a.mgmt")
	}
	if mgmt.CIDR.String() != "10.0.0.0/26" || mgmt.Gateway.String() != "10.0.0.62" {
		t.Errorf("unexpected mgmt after round trip: %+v", mgmt)
	}
	if mgmt.Seq != 1 || mgmt.VLAN == nil || *mgmt.VLAN != 100 {
		t.Errorf("seq or vlan lost in round trip: %+v", mgmt)
	}

	vips, _ := snap.Lookup(model.EntryKey{Node: "node-a", Name: "vips"})
	if vips.HasGateway() {
		t.Errorf("vips gained a gateway in round trip: %s", vips.Gateway)
	}
	if vips.Range.String() != "10.0.0.1-10.0.0.4" {
		t.Errorf("vips range = %s, want 10.0.0.1-10.0.0.4", vips.Range)
	}
}

func TestDecodeRejectsBadAddresses(t *testing.T) {
	data := []byte(`{"n": {"ipam": {"e": {"cidr": "not-a-cidr", "ip_range": {"start": "10.0.0.1", "end": "10.0.0.2"}}}}}`)

	doc, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Snapshot(); err == nil {
		t.Fatal("expected an error for an unparseable cidr")
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "allocations.json")
	s := NewFileStore(path)

	// Nothing saved yet.
	doc, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Fatalf("expected no document, got %v", doc)
	}

	want := FromPlan(testPlan())
	if _, err := s.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Latest() = %+v, want %+v", got, want)
	}

	// LoadFile reads the same file directly.
	fromFile, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fromFile.Count() != 2 {
		t.Errorf("LoadFile count = %d, want 2", fromFile.Count())
	}
}
