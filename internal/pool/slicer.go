package pool

import (
	"inet.af/netaddr"
)

// RangeSlicer carves sequential sub-ranges out of one subnet's usable
// addresses. The remaining interval only ever shrinks, from either end.
type RangeSlicer struct {
	network   netaddr.IPPrefix
	remaining netaddr.IPRange
}

// NewRangeSlicer seeds a slicer with the network's usable interval: the
// network address and the final two addresses (broadcast plus the
// conventional gateway slot) are excluded when the network holds at least
// four addresses; smaller networks are usable in full.
func NewRangeSlicer(network netaddr.IPPrefix) *RangeSlicer {
	network = network.Masked()

	var r netaddr.IPRange
	if HostBits(network) >= 2 {
		r = netaddr.IPRangeFrom(AddrAdd(network.IP(), 1), AddrSub(LastAddr(network), 2))
	} else {
		r = netaddr.IPRangeFrom(network.IP(), LastAddr(network))
	}
	return &RangeSlicer{network: network, remaining: r}
}

// Network returns the subnet the slicer was seeded from.
func (s *RangeSlicer) Network() netaddr.IPPrefix { return s.network }

// Remaining returns the interval still available.
func (s *RangeSlicer) Remaining() netaddr.IPRange { return s.remaining }

// Alloc carves size addresses from the front of the remaining interval, or
// from the back when fromBack is set. The request must be strictly smaller
// than the remaining interval so at least one address stays unassigned.
func (s *RangeSlicer) Alloc(size uint64, fromBack bool) (netaddr.IPRange, error) {
	avail := RangeSize(s.remaining)
	if size == 0 || size >= avail {
		return netaddr.IPRange{}, &RangeExhaustedError{Requested: size, Available: avail}
	}

	var out netaddr.IPRange
	if fromBack {
		out = netaddr.IPRangeFrom(AddrSub(s.remaining.To(), size-1), s.remaining.To())
		s.remaining = netaddr.IPRangeFrom(s.remaining.From(), AddrSub(s.remaining.To(), size))
	} else {
		out = netaddr.IPRangeFrom(s.remaining.From(), AddrAdd(s.remaining.From(), size-1))
		s.remaining = netaddr.IPRangeFrom(AddrAdd(s.remaining.From(), size), s.remaining.To())
	}
	return out, nil
}
