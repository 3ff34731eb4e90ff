package log

import "testing"

func TestWithFields(t *testing.T) {
	e := withFields([]any{"node", "node-a", "entries", 3})
	if e.Data["node"] != "node-a" {
		t.Errorf("node field = %v, want node-a", e.Data["node"])
	}
	if e.Data["entries"] != 3 {
		t.Errorf("entries field = %v, want 3", e.Data["entries"])
	}

	// A trailing key without a value is dropped.
	e = withFields([]any{"dangling"})
	if len(e.Data) != 0 {
		t.Errorf("unexpected fields: %v", e.Data)
	}

	// Non-string keys are rendered rather than panicking.
	e = withFields([]any{42, "x"})
	if e.Data["42"] != "x" {
		t.Errorf("rendered key missing: %v", e.Data)
	}
}
