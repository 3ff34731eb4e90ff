package pool

import (
	"fmt"

	"inet.af/netaddr"
)

// SubnetPool owns one address block split into a free set and a reserved
// set; the two always partition the pool's universe exactly. Carving moves
// blocks from free to reserved; nothing is ever returned.
type SubnetPool struct {
	name     string
	block    netaddr.IPPrefix
	free     *netaddr.IPSet
	reserved *netaddr.IPSet
}

// NewSubnetPool builds a pool over block, optionally narrowed to the
// inclusive [start, end] interval. A zero start defaults to the block's
// first address, a zero end to its last. Bounds outside the block fail
// with OutOfRangeError.
func NewSubnetPool(name string, block netaddr.IPPrefix, start, end netaddr.IP) (*SubnetPool, error) {
	block = block.Masked()

	var fb netaddr.IPSetBuilder
	if start.IsZero() && end.IsZero() {
		fb.AddPrefix(block)
	} else {
		if start.IsZero() {
			start = block.IP()
		} else if !block.Contains(start) {
			return nil, &OutOfRangeError{IP: start, Block: block}
		}
		if end.IsZero() {
			end = LastAddr(block)
		} else if !block.Contains(end) {
			return nil, &OutOfRangeError{IP: end, Block: block}
		}
		fb.AddRange(netaddr.IPRangeFrom(start, end))
	}

	free, err := fb.IPSet()
	if err != nil {
		return nil, fmt.Errorf("building free set for pool %q: %w", name, err)
	}

	var rb netaddr.IPSetBuilder
	reserved, err := rb.IPSet()
	if err != nil {
		return nil, err
	}

	return &SubnetPool{name: name, block: block, free: free, reserved: reserved}, nil
}

// Name returns the declaring name of the pool.
func (p *SubnetPool) Name() string { return p.name }

// Block returns the pool's base network.
func (p *SubnetPool) Block() netaddr.IPPrefix { return p.block }

// Free returns the minimal disjoint blocks still available, in ascending
// address order.
func (p *SubnetPool) Free() []netaddr.IPPrefix { return p.free.Prefixes() }

// Reserved returns the set of blocks carved out so far.
func (p *SubnetPool) Reserved() *netaddr.IPSet { return p.reserved }

// AllocateSubnet carves a subnet of the given prefix length out of the best
// matching free block. An exact prefix-length match wins immediately;
// otherwise the smallest usable block wins, scanning the compacted free set
// in ascending address order with the first candidate winning ties. The
// chosen block's numerically first sub-block of prefixLen moves from free
// to reserved. Prefix lengths outside the pool's address family fail with
// InvalidPrefixLenError.
func (p *SubnetPool) AllocateSubnet(prefixLen int) (netaddr.IPPrefix, error) {
	bits := uint8(128)
	if p.block.IP().Is4() {
		bits = 32
	}
	if prefixLen <= 0 || prefixLen > int(bits) {
		return netaddr.IPPrefix{}, &InvalidPrefixLenError{PrefixLen: prefixLen, Bits: bits}
	}
	want := uint8(prefixLen)

	var best netaddr.IPPrefix
	bestCost := -1

	for _, cand := range p.free.Prefixes() {
		if cand.Bits() == want {
			best, bestCost = cand, 0
			break
		}
		if cand.Bits() < want {
			cost := int(want) - int(cand.Bits())
			if bestCost == -1 || cost < bestCost {
				best, bestCost = cand, cost
			}
		}
	}

	if bestCost == -1 {
		return netaddr.IPPrefix{}, &ExhaustedError{Pool: p.name, PrefixLen: want}
	}

	subnet := netaddr.IPPrefixFrom(best.IP(), want)
	if err := p.reserve(subnet); err != nil {
		return netaddr.IPPrefix{}, err
	}
	return subnet, nil
}

// AllocateBiggest carves the single largest free block, ties broken by
// ascending address. Fails with ExhaustedError when the pool is empty.
func (p *SubnetPool) AllocateBiggest() (netaddr.IPPrefix, error) {
	var best netaddr.IPPrefix
	found := false

	for _, cand := range p.free.Prefixes() {
		if !found || cand.Bits() < best.Bits() {
			best, found = cand, true
		}
	}

	if !found {
		return netaddr.IPPrefix{}, &ExhaustedError{Pool: p.name}
	}

	if err := p.reserve(best); err != nil {
		return netaddr.IPPrefix{}, err
	}
	return best, nil
}

func (p *SubnetPool) reserve(subnet netaddr.IPPrefix) error {
	var fb netaddr.IPSetBuilder
	fb.AddSet(p.free)
	fb.RemovePrefix(subnet)
	free, err := fb.IPSet()
	if err != nil {
		return fmt.Errorf("updating free set of pool %q: %w", p.name, err)
	}

	var rb netaddr.IPSetBuilder
	rb.AddSet(p.reserved)
	rb.AddPrefix(subnet)
	reserved, err := rb.IPSet()
	if err != nil {
		return fmt.Errorf("updating reserved set of pool %q: %w", p.name, err)
	}

	p.free = free
	p.reserved = reserved
	return nil
}
