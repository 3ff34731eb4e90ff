package model

import "fmt"

// SubnetDecl declares an address block a pool is built from. A subnet is
// either given directly as a CIDR (optionally narrowed by an inclusive
// start/end address) or derived from another declared subnet by carving a
// block of PrefixLen out of it.
type SubnetDecl struct {
	Name      string
	CIDR      string
	StartIP   string
	EndIP     string
	From      string
	PrefixLen int
}

// VlanPoolDecl declares a half-open [Start, End) interval of VLAN ids.
type VlanPoolDecl struct {
	Name  string
	Start int
	End   int
}

// Node is one consumer of address space: an ordered list of entries plus
// label indirection tables selecting which subnet and VLAN pool each entry
// draws from.
type Node struct {
	Name     string
	Metadata map[string]any

	// Label -> pool name lookups.
	Subnets   map[string]string
	VlanPools map[string]string

	Entries []Entry
}

// Entry is a single allocation request declared in the schema.
type Entry struct {
	Node    string
	Name    string
	Label   string
	Request Request

	Metadata map[string]any

	// Seq is the permanent replay order, assigned by reconciliation.
	// Zero until reconciled.
	Seq int
}

// Key returns the entry's identity within a schema.
func (e *Entry) Key() EntryKey {
	return EntryKey{Node: e.Node, Name: e.Name}
}

// EntryKey identifies an entry across runs.
type EntryKey struct {
	Node string
	Name string
}

func (k EntryKey) String() string {
	return k.Node + "." + k.Name
}

// RequestKind discriminates the two allocation request variants.
type RequestKind int

const (
	// RequestSubnet asks for a fresh subnet of a given prefix length.
	RequestSubnet RequestKind = iota
	// RequestRange asks for a sized IP range carved from another entry's
	// allocated network. A negative size allocates from the back.
	RequestRange
)

// Request is a tagged variant: exactly one of PrefixLen or From+Size is set.
type Request struct {
	PrefixLen int
	From      string
	Size      int
}

// Kind validates the variant shape and returns which request this is.
func (r Request) Kind() (RequestKind, error) {
	subnet := r.PrefixLen != 0
	rng := r.From != "" || r.Size != 0

	switch {
	case subnet && !rng:
		return RequestSubnet, nil
	case rng && !subnet:
		if r.From == "" || r.Size == 0 {
			return 0, &UnsupportedRequestError{Request: r}
		}
		return RequestRange, nil
	default:
		return 0, &UnsupportedRequestError{Request: r}
	}
}

// UnsupportedRequestError reports an entry request matching none of the
// recognized forms (or more than one at once).
type UnsupportedRequestError struct {
	Node    string
	Name    string
	Request Request
}

func (e *UnsupportedRequestError) Error() string {
	where := ""
	if e.Node != "" || e.Name != "" {
		where = fmt.Sprintf(" for entry %s.%s", e.Node, e.Name)
	}
	return fmt.Sprintf("unsupported request%s: exactly one of prefixlen or from+size must be set (prefixlen=%d, from=%q, size=%d)",
		where, e.Request.PrefixLen, e.Request.From, e.Request.Size)
}

// Schema is the full declarative input: subnet and VLAN pool declarations
// plus the ordered node/entry list. Declaration order is significant both for
// derived subnets and for entry processing.
type Schema struct {
	Subnets   []SubnetDecl
	VlanPools []VlanPoolDecl
	Nodes     []Node

	// Properties are passed through to the plan untouched.
	Properties map[string]any
}

// Subnet looks up a subnet declaration by name.
func (s *Schema) Subnet(name string) (SubnetDecl, bool) {
	for _, d := range s.Subnets {
		if d.Name == name {
			return d, true
		}
	}
	return SubnetDecl{}, false
}

// Entries returns all entries of all nodes in declaration order.
func (s *Schema) Entries() []Entry {
	var out []Entry
	for _, n := range s.Nodes {
		out = append(out, n.Entries...)
	}
	return out
}
