package model

import (
	"inet.af/netaddr"
)

// Allocation kinds.
const (
	KindSubnet  = "subnet"   // fresh subnet carved from a pool
	KindIPRange = "ip_range" // range derived from another entry's network
)

// Allocation is the resolved result for one entry. Gateway is the zero IP
// when the network is too small to reserve one.
type Allocation struct {
	Name     string
	Seq      int
	Kind     string
	Label    string
	VLAN     *int
	Metadata map[string]any

	CIDR    netaddr.IPPrefix
	Range   netaddr.IPRange
	Gateway netaddr.IP
}

// HasGateway reports whether a gateway address was reserved.
func (a *Allocation) HasGateway() bool {
	return !a.Gateway.IsZero()
}

// NodeAllocations groups a node's allocations in declared entry order.
type NodeAllocations struct {
	Node     string
	Metadata map[string]any
	Entries  []Allocation
}

// PoolState is the residual free space of a subnet pool after a run.
// Informational only; never used to restore state.
type PoolState struct {
	Name string
	Free []netaddr.IPPrefix
}

// VlanState is the unissued remainder [Next, Last) of a VLAN pool.
type VlanState struct {
	Name string
	Next int
	Last int
}

// Plan is one run's complete output: per-node allocations in declaration
// order, pass-through properties, and pool diagnostics.
type Plan struct {
	Nodes      []NodeAllocations
	Properties map[string]any

	Pools []PoolState
	Vlans []VlanState
}

// Lookup returns the allocation for an entry key, if present.
func (p *Plan) Lookup(key EntryKey) (*Allocation, bool) {
	for i := range p.Nodes {
		if p.Nodes[i].Node != key.Node {
			continue
		}
		for j := range p.Nodes[i].Entries {
			if p.Nodes[i].Entries[j].Name == key.Name {
				return &p.Nodes[i].Entries[j], true
			}
		}
	}
	return nil, false
}

// Snapshot is a prior run's allocations, keyed by entry identity. Read-only
// input to reconciliation; never mutated by a run.
type Snapshot struct {
	Entries map[EntryKey]Allocation
}

// SnapshotFromPlan converts a plan into the snapshot a following run
// replays against.
func SnapshotFromPlan(p *Plan) *Snapshot {
	s := &Snapshot{Entries: make(map[EntryKey]Allocation)}
	for _, n := range p.Nodes {
		for _, a := range n.Entries {
			s.Entries[EntryKey{Node: n.Node, Name: a.Name}] = a
		}
	}
	return s
}

// Lookup returns the prior allocation for an entry, if any.
func (s *Snapshot) Lookup(key EntryKey) (Allocation, bool) {
	if s == nil || s.Entries == nil {
		return Allocation{}, false
	}
	a, ok := s.Entries[key]
	return a, ok
}
