package store

import (
	"path/filepath"
	"testing"

	"github.com/daviddao/liftplan/pkg/model"
)

// TestStoreImplementsInterface calls every method through StoreInterface
// on a real store.
func TestStoreImplementsInterface(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	var iface StoreInterface = s

	r := &model.Run{Domain: "d", Problem: "p"}
	if err := iface.CreateRun(r, []string{"(a)"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if got, err := iface.GetRun(r.ID); err != nil || got.ID != r.ID {
		t.Fatalf("GetRun: got %v, %v", got, err)
	}
	if runs, err := iface.ListRuns(); err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: got %d runs, %v", len(runs), err)
	}
	if err := iface.RecordState(&model.Snapshot{RunID: r.ID, Generation: 1, Action: "(x)"}); err != nil {
		t.Fatalf("RecordState: %v", err)
	}
	if snap, err := iface.LatestState(r.ID); err != nil || snap.Generation != 1 {
		t.Fatalf("LatestState: got %v, %v", snap, err)
	}
	if states, err := iface.ListStates(r.ID, 0); err != nil || len(states) != 2 {
		t.Fatalf("ListStates: got %d, %v", len(states), err)
	}
	if err := iface.DeleteRun(r.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
}
