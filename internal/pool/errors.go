package pool

import (
	"fmt"

	"inet.af/netaddr"
)

// OverlapError reports a declared block intersecting a block already
// assigned to another pool in this run.
type OverlapError struct {
	Pool  string
	Block netaddr.IPPrefix
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("subnet %s (pool %q) overlaps a previously declared subnet", e.Block, e.Pool)
}

// InvalidPrefixLenError reports a prefix length outside the pool's address
// family.
type InvalidPrefixLenError struct {
	PrefixLen int
	Bits      uint8
}

func (e *InvalidPrefixLenError) Error() string {
	return fmt.Sprintf("invalid prefix length %d: must be between 1 and %d", e.PrefixLen, e.Bits)
}

// ExhaustedError reports a subnet pool unable to satisfy a carve request.
// PrefixLen is zero when the biggest-subnet request found an empty pool.
type ExhaustedError struct {
	Pool      string
	PrefixLen uint8
}

func (e *ExhaustedError) Error() string {
	if e.PrefixLen == 0 {
		return fmt.Sprintf("pool %q is empty", e.Pool)
	}
	return fmt.Sprintf("could not allocate a /%d subnet from pool %q", e.PrefixLen, e.Pool)
}

// OutOfRangeError reports an explicit pool bound outside its base block.
type OutOfRangeError struct {
	IP    netaddr.IP
	Block netaddr.IPPrefix
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("IP address %s is not part of subnet %s", e.IP, e.Block)
}

// RangeExhaustedError reports a slice request not strictly smaller than the
// remaining interval (one address always stays unassigned for the gateway).
type RangeExhaustedError struct {
	Requested uint64
	Available uint64
}

func (e *RangeExhaustedError) Error() string {
	return fmt.Sprintf("not enough addresses left to allocate the requested IP range: requested %d, available %d",
		e.Requested, e.Available-1)
}

// VlanExhaustedError reports a VLAN pool whose cursor reached its bound.
type VlanExhaustedError struct {
	Pool  string
	First int
	Last  int
}

func (e *VlanExhaustedError) Error() string {
	return fmt.Sprintf("VLAN pool %q [%d, %d) is exhausted", e.Pool, e.First, e.Last)
}
