// Package snapshot persists allocation runs and loads them back as the
// prior snapshot a later run replays against. The on-disk JSON document is
// also the machine-readable output format, so a saved run can always be fed
// back in.
package snapshot

import (
	"fmt"

	"inet.af/netaddr"

	"github.com/martinsuchenak/subnetplan/internal/model"
	"github.com/martinsuchenak/subnetplan/internal/pool"
)

// RangeDoc is the wire form of an allocated IP range.
type RangeDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Str   string `json:"str"`
	Size  uint64 `json:"size"`
}

// Record is the wire form of one entry's allocation.
type Record struct {
	Seq       int            `json:"seq"`
	VLAN      *int           `json:"vlan"`
	Label     string         `json:"label,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IPRange   RangeDoc       `json:"ip_range"`
	Gateway   *string        `json:"gateway"`
	CIDR      string         `json:"cidr"`
	PrefixLen int            `json:"prefixlen"`
	Netmask   string         `json:"netmask"`
	Kind      string         `json:"kind"`
}

// NodeDoc groups one node's records.
type NodeDoc struct {
	Metadata map[string]any    `json:"metadata,omitempty"`
	IPAM     map[string]Record `json:"ipam"`
}

// Document is a full run keyed by node name.
type Document map[string]NodeDoc

// FromPlan converts a plan into its wire document.
func FromPlan(p *model.Plan) Document {
	doc := make(Document, len(p.Nodes))
	for _, n := range p.Nodes {
		nd := NodeDoc{Metadata: n.Metadata, IPAM: make(map[string]Record, len(n.Entries))}
		for _, a := range n.Entries {
			nd.IPAM[a.Name] = recordFrom(a)
		}
		doc[n.Node] = nd
	}
	return doc
}

func recordFrom(a model.Allocation) Record {
	r := Record{
		Seq:      a.Seq,
		VLAN:     a.VLAN,
		Label:    a.Label,
		Metadata: a.Metadata,
		IPRange: RangeDoc{
			Start: a.Range.From().String(),
			End:   a.Range.To().String(),
			Str:   a.Range.String(),
			Size:  pool.RangeSize(a.Range),
		},
		CIDR:      a.CIDR.String(),
		PrefixLen: int(a.CIDR.Bits()),
		Netmask:   pool.Netmask(a.CIDR),
		Kind:      a.Kind,
	}
	if a.HasGateway() {
		gw := a.Gateway.String()
		r.Gateway = &gw
	}
	return r
}

// Snapshot converts the document back into the typed snapshot used for
// reconciliation.
func (d Document) Snapshot() (*model.Snapshot, error) {
	if d == nil {
		return nil, nil
	}
	s := &model.Snapshot{Entries: make(map[model.EntryKey]model.Allocation)}
	for node, nd := range d {
		for name, r := range nd.IPAM {
			a, err := r.allocation(name)
			if err != nil {
				return nil, fmt.Errorf("snapshot entry %s.%s: %w", node, name, err)
			}
			s.Entries[model.EntryKey{Node: node, Name: name}] = a
		}
	}
	return s, nil
}

// Count returns the total number of records.
func (d Document) Count() int {
	n := 0
	for _, nd := range d {
		n += len(nd.IPAM)
	}
	return n
}

func (r Record) allocation(name string) (model.Allocation, error) {
	cidr, err := netaddr.ParseIPPrefix(r.CIDR)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("cidr: %w", err)
	}
	from, err := netaddr.ParseIP(r.IPRange.Start)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("ip_range start: %w", err)
	}
	to, err := netaddr.ParseIP(r.IPRange.End)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("ip_range end: %w", err)
	}

	a := model.Allocation{
		Name:     name,
		Seq:      r.Seq,
		Kind:     r.Kind,
		Label:    r.Label,
		VLAN:     r.VLAN,
		Metadata: r.Metadata,
		CIDR:     cidr,
		Range:    netaddr.IPRangeFrom(from, to),
	}
	if r.Gateway != nil {
		gw, err := netaddr.ParseIP(*r.Gateway)
		if err != nil {
			return model.Allocation{}, fmt.Errorf("gateway: %w", err)
		}
		a.Gateway = gw
	}
	return a, nil
}
