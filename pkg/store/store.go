// Package store persists planning runs in SQLite.
//
// A run is a trajectory through the state space of one problem: generation
// 0 is the initial state and every applied action records the next
// generation. Facts are stored in bracket notation, so a run can be resumed
// by any process that loads the same domain and problem files. WAL mode
// lets several processes read a run while one appends to it.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/liftplan/pkg/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrRunNotFound is returned when no run matches an id or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an id prefix matches several runs.
	ErrAmbiguousRun = errors.New("ambiguous run id")
	// ErrGenerationExists is returned when a generation of a run is
	// recorded twice, typically by two processes racing on the same run.
	ErrGenerationExists = errors.New("generation already recorded")
)

// timeFormat has fixed-width fractional seconds so stored times sort as
// text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		domain       TEXT NOT NULL,
		problem      TEXT NOT NULL,
		domain_file  TEXT NOT NULL DEFAULT '',
		problem_file TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS states (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		generation INTEGER NOT NULL,
		action     TEXT NOT NULL DEFAULT '',
		facts      TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, generation)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// CreateRun assigns r a fresh id and creation time, then stores it together
// with its initial state as generation 0.
func (s *Store) CreateRun(r *model.Run, init []string) error {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	facts, err := json.Marshal(nonNil(init))
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	now := r.CreatedAt.Format(timeFormat)
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.Exec(
			`INSERT INTO runs (id, domain, problem, domain_file, problem_file, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Domain, r.Problem, r.DomainFile, r.ProblemFile, now,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO states (run_id, generation, action, facts, created_at)
			 VALUES (?, 0, '', ?, ?)`,
			r.ID, string(facts), now,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetRun retrieves a run by id or by a unique id prefix.
func (s *Store) GetRun(id string) (*model.Run, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := s.db.Query(
		`SELECT id, domain, problem, domain_file, problem_file, created_at
		 FROM runs WHERE id = ? OR id LIKE ? || '%'
		 ORDER BY (id = ?) DESC LIMIT 2`,
		id, id, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case runs[0].ID == id || len(runs) == 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns() ([]model.Run, error) {
	rows, err := s.db.Query(
		`SELECT id, domain, problem, domain_file, problem_file, created_at
		 FROM runs ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// DeleteRun removes a run and all its states.
func (s *Store) DeleteRun(id string) error {
	return retryOnContention(func() error {
		res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

func scanRuns(rows *sql.Rows) ([]model.Run, error) {
	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var created string
		if err := rows.Scan(&r.ID, &r.Domain, &r.Problem, &r.DomainFile, &r.ProblemFile, &created); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", r.ID, err)
		}
		r.CreatedAt = t
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ---------------------------------------------------------------------------
// States
// ---------------------------------------------------------------------------

// RecordState appends a generation to a run. Recording a generation that
// already exists fails with ErrGenerationExists.
func (s *Store) RecordState(snap *model.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	facts, err := json.Marshal(nonNil(snap.Facts))
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	err = retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO states (run_id, generation, action, facts, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			snap.RunID, snap.Generation, snap.Action, string(facts),
			snap.CreatedAt.Format(timeFormat),
		)
		return err
	})
	if isConstraintErr(err) {
		var exists int
		if s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE id = ?`, snap.RunID).Scan(&exists) == nil && exists == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, snap.RunID)
		}
		return fmt.Errorf("%w: run %s generation %d", ErrGenerationExists, snap.RunID, snap.Generation)
	}
	return err
}

// LatestState returns the highest recorded generation of a run.
func (s *Store) LatestState(runID string) (*model.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT run_id, generation, action, facts, created_at
		 FROM states WHERE run_id = ? ORDER BY generation DESC LIMIT 1`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return &snaps[0], nil
}

// ListStates returns the generations of a run in order. limit <= 0 means no
// limit.
func (s *Store) ListStates(runID string, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT run_id, generation, action, facts, created_at
		 FROM states WHERE run_id = ? ORDER BY generation ASC LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	for rows.Next() {
		var sn model.Snapshot
		var facts, created string
		if err := rows.Scan(&sn.RunID, &sn.Generation, &sn.Action, &facts, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(facts), &sn.Facts); err != nil {
			return nil, fmt.Errorf("decode facts for run %s generation %d: %w", sn.RunID, sn.Generation, err)
		}
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", sn.RunID, err)
		}
		sn.CreatedAt = t
		snaps = append(snaps, sn)
	}
	return snaps, rows.Err()
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
