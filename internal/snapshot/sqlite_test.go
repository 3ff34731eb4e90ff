package snapshot

import (
	"reflect"
	"strings"
	"testing"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreEmpty(t *testing.T) {
	s := setupSQLiteStore(t)

	doc, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Fatalf("expected no document, got %v", doc)
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}

func TestSQLiteStoreSaveAndLatest(t *testing.T) {
	s := setupSQLiteStore(t)
	want := FromPlan(testPlan())

	id, err := s.Save(want)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run id")
	}

	got, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Latest() = %+v, want %+v", got, want)
	}

	byID, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !reflect.DeepEqual(byID, want) {
		t.Errorf("GetRun(%s) differs from the saved document", id)
	}
}

func TestSQLiteStoreRunHistory(t *testing.T) {
	s := setupSQLiteStore(t)
	doc := FromPlan(testPlan())

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Save(doc)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Entries != doc.Count() {
			t.Errorf("run %s entry count = %d, want %d", r.ID, r.Entries, doc.Count())
		}
	}

	// The most recently saved run comes back first.
	if runs[0].ID != ids[2] && runs[0].CreatedAt.Before(runs[2].CreatedAt) {
		t.Errorf("runs not ordered newest first: %+v", runs)
	}

	_, err = s.GetRun("no-such-run")
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("expected a not-found error, got %v", err)
	}
}
