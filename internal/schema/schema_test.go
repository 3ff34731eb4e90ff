package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/martinsuchenak/subnetplan/internal/model"
)

const sampleDoc = `
subnet:
  backbone: {cidr: 10.0.0.0/16}
  narrow: {cidr: 192.168.10.0/24, start_ip: 192.168.10.16, end_ip: 192.168.10.31}
  edge: {from: backbone, prefixlen: 20}
vlan_pool:
  fabric: {start: 100, end: 200}
properties:
  domain: example.net
ipam:
  node-a:
    metadata: {site: fra1}
    subnet: {internal: backbone}
    vlan_pool: {internal: fabric}
    schema:
      - {name: mgmt, label: internal, prefixlen: 26}
      - name: vips
        from: .mgmt
        size: 4
        metadata: {reserved: true}
  node-b:
    subnet: {internal: edge}
    schema:
      - {name: mgmt, label: internal, prefixlen: 28}
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Declaration order of subnets and nodes is preserved.
	if len(s.Subnets) != 3 || s.Subnets[0].Name != "backbone" || s.Subnets[1].Name != "narrow" || s.Subnets[2].Name != "edge" {
		t.Errorf("unexpected subnet declarations: %+v", s.Subnets)
	}
	if len(s.Nodes) != 2 || s.Nodes[0].Name != "node-a" || s.Nodes[1].Name != "node-b" {
		t.Errorf("unexpected node order: %+v", s.Nodes)
	}

	narrow, ok := s.Subnet("narrow")
	if !ok || narrow.StartIP != "192.168.10.16" || narrow.EndIP != "192.168.10.31" {
		t.Errorf("unexpected narrow declaration: %+v", narrow)
	}
	edge, _ := s.Subnet("edge")
	if edge.From != "backbone" || edge.PrefixLen != 20 {
		t.Errorf("unexpected edge declaration: %+v", edge)
	}

	if len(s.VlanPools) != 1 || s.VlanPools[0].Start != 100 || s.VlanPools[0].End != 200 {
		t.Errorf("unexpected vlan pools: %+v", s.VlanPools)
	}
	if s.Properties["domain"] != "example.net" {
		t.Errorf("properties not passed through: %v", s.Properties)
	}

	nodeA := s.Nodes[0]
	if nodeA.Metadata["site"] != "fra1" {
		t.Errorf("node metadata lost: %v", nodeA.Metadata)
	}
	if nodeA.Subnets["internal"] != "backbone" || nodeA.VlanPools["internal"] != "fabric" {
		t.Errorf("label tables lost: %v %v", nodeA.Subnets, nodeA.VlanPools)
	}
	if len(nodeA.Entries) != 2 {
		t.Fatalf("expected 2 entries on node-a, got %d", len(nodeA.Entries))
	}

	vips := nodeA.Entries[1]
	if vips.Request.From != ".mgmt" || vips.Request.Size != 4 {
		t.Errorf("unexpected vips request: %+v", vips.Request)
	}
	if vips.Metadata["reserved"] != true {
		t.Errorf("entry metadata lost: %v", vips.Metadata)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"no nodes",
			"subnet:\n  a: {cidr: 10.0.0.0/24}\n",
			"no ipam nodes",
		},
		{
			"cidr and from together",
			"subnet:\n  a: {cidr: 10.0.0.0/24, from: b, prefixlen: 26}\nipam:\n  n:\n    schema: [{name: e, label: x, prefixlen: 26}]\n",
			"mutually exclusive",
		},
		{
			"derived without prefixlen",
			"subnet:\n  a: {from: b}\nipam:\n  n:\n    schema: [{name: e, label: x, prefixlen: 26}]\n",
			"needs a prefixlen",
		},
		{
			"bounds on derived subnet",
			"subnet:\n  a: {from: b, prefixlen: 26, start_ip: 10.0.0.1}\nipam:\n  n:\n    schema: [{name: e, label: x, prefixlen: 26}]\n",
			"only apply to cidr subnets",
		},
		{
			"vlan pool ends before it starts",
			"vlan_pool:\n  v: {start: 200, end: 100}\nipam:\n  n:\n    schema: [{name: e, label: x, prefixlen: 26}]\n",
			"end 100 before start 200",
		},
		{
			"entry without name",
			"ipam:\n  n:\n    schema: [{label: x, prefixlen: 26}]\n",
			"has no name",
		},
		{
			"duplicate entry name",
			"ipam:\n  n:\n    schema: [{name: e, label: x, prefixlen: 26}, {name: e, label: x, prefixlen: 27}]\n",
			"duplicate entry name",
		},
		{
			"subnet entry without label",
			"ipam:\n  n:\n    schema: [{name: e, prefixlen: 26}]\n",
			"has no label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseRejectsMixedRequest(t *testing.T) {
	doc := "ipam:\n  n:\n    schema: [{name: e, label: x, prefixlen: 26, from: .e, size: 2}]\n"

	_, err := Parse([]byte(doc))
	var ue *model.UnsupportedRequestError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedRequestError, got %v", err)
	}
	if ue.Node != "n" || ue.Name != "e" {
		t.Errorf("error not annotated with the entry: %+v", ue)
	}
}
