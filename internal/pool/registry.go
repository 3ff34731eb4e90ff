package pool

import (
	"fmt"
	"sort"

	"inet.af/netaddr"
)

// Registry holds the subnet pools of one run by name and enforces the
// global invariant that directly declared blocks never overlap each other.
// Derived pools are carved from a parent's free space, which already keeps
// them disjoint from everything else, so only declared blocks join the
// running union. Owned by the planner for the run's lifetime.
type Registry struct {
	pools    map[string]*SubnetPool
	declared *netaddr.IPSet
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	var b netaddr.IPSetBuilder
	declared, _ := b.IPSet()
	return &Registry{
		pools:    make(map[string]*SubnetPool),
		declared: declared,
	}
}

// AddDeclared constructs a pool from a directly declared block, rejecting
// any intersection with previously declared blocks.
func (r *Registry) AddDeclared(name string, block netaddr.IPPrefix, start, end netaddr.IP) (*SubnetPool, error) {
	if _, ok := r.pools[name]; ok {
		return nil, fmt.Errorf("subnet pool %q declared twice", name)
	}

	var cb netaddr.IPSetBuilder
	cb.AddPrefix(block.Masked())
	candidate, err := cb.IPSet()
	if err != nil {
		return nil, err
	}
	if r.declared.Overlaps(candidate) {
		return nil, &OverlapError{Pool: name, Block: block.Masked()}
	}

	p, err := NewSubnetPool(name, block, start, end)
	if err != nil {
		return nil, err
	}

	var ub netaddr.IPSetBuilder
	ub.AddSet(r.declared)
	ub.AddPrefix(block.Masked())
	union, err := ub.IPSet()
	if err != nil {
		return nil, err
	}

	r.declared = union
	r.pools[name] = p
	return p, nil
}

// AddDerived registers a pool wrapped around a block already carved from a
// parent pool in this run.
func (r *Registry) AddDerived(name string, block netaddr.IPPrefix) (*SubnetPool, error) {
	if _, ok := r.pools[name]; ok {
		return nil, fmt.Errorf("subnet pool %q declared twice", name)
	}
	p, err := NewSubnetPool(name, block, netaddr.IP{}, netaddr.IP{})
	if err != nil {
		return nil, err
	}
	r.pools[name] = p
	return p, nil
}

// Get returns the pool registered under name.
func (r *Registry) Get(name string) (*SubnetPool, bool) {
	p, ok := r.pools[name]
	return p, ok
}

// Names returns the registered pool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
