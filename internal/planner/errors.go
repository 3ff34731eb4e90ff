package planner

import (
	"fmt"

	"github.com/martinsuchenak/subnetplan/internal/model"
)

// MalformedReferenceError reports a derived-range parent reference that does
// not parse as "node.name" or ".name".
type MalformedReferenceError struct {
	Entry model.EntryKey
	Ref   string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("entry %s: malformed parent reference %q (want \"node.name\" or \".name\")", e.Entry, e.Ref)
}

// CycleError reports a subnet derivation chain that loops back on itself.
type CycleError struct {
	Subnet string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("subnet derivation cycle detected at %q", e.Subnet)
}
