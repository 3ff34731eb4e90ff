package pool

// VlanSequencer issues strictly increasing unused VLAN ids from a half-open
// [first, last) interval.
type VlanSequencer struct {
	name  string
	first int
	next  int
	last  int
}

// NewVlanSequencer builds a sequencer over [first, last).
func NewVlanSequencer(name string, first, last int) *VlanSequencer {
	return &VlanSequencer{name: name, first: first, next: first, last: last}
}

// Name returns the declaring pool name.
func (v *VlanSequencer) Name() string { return v.name }

// Alloc returns the next unused id and advances the cursor.
func (v *VlanSequencer) Alloc() (int, error) {
	if v.next >= v.last {
		return 0, &VlanExhaustedError{Pool: v.name, First: v.first, Last: v.last}
	}
	id := v.next
	v.next++
	return id, nil
}

// Unused returns the unissued remainder [next, last). Diagnostic only.
func (v *VlanSequencer) Unused() (next, last int) {
	return v.next, v.last
}
