// iface.go defines the StoreInterface for dependency injection and testing.
package store

import "github.com/daviddao/liftplan/pkg/model"

// StoreInterface is the set of store operations the cmd layer uses.
type StoreInterface interface {
	Close() error

	// --- Runs ---

	// CreateRun stores a new run and its initial state as generation 0.
	CreateRun(r *model.Run, init []string) error

	// GetRun retrieves a run by id or unique id prefix.
	GetRun(id string) (*model.Run, error)

	// ListRuns returns all runs, oldest first.
	ListRuns() ([]model.Run, error)

	// DeleteRun removes a run and its states.
	DeleteRun(id string) error

	// --- States ---

	// RecordState appends a generation to a run.
	RecordState(snap *model.Snapshot) error

	// LatestState returns the highest recorded generation of a run.
	LatestState(runID string) (*model.Snapshot, error)

	// ListStates returns the generations of a run in order.
	ListStates(runID string, limit int) ([]model.Snapshot, error)
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)
