package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/daviddao/liftplan/pkg/config"
	"github.com/daviddao/liftplan/pkg/descriptor"
	"github.com/daviddao/liftplan/pkg/encode"
	"github.com/daviddao/liftplan/pkg/model"
	"github.com/daviddao/liftplan/pkg/planner"
	"github.com/daviddao/liftplan/pkg/store"
)

// app holds shared state for all CLI subcommands. The store is opened on
// first use so commands that never touch a run work without a database.
type app struct {
	cfg     *config.Config
	cfgPath string
	log     *zap.Logger
	out     io.Writer
	store   *store.Store
}

// openStore opens the configured database, creating its directory.
func (a *app) openStore() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if dir := filepath.Dir(a.cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", a.cfg.DB, err)
	}
	a.store = s
	return s, nil
}

// Close releases the database connection, if one was opened.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) newTask() *planner.Task {
	return planner.New(planner.WithLogger(a.log), planner.WithWorkers(a.cfg.Workers))
}

// loadTask reads both files and returns a task positioned at the problem's
// initial state.
func (a *app) loadTask(domainPath, problemPath string) (*planner.Task, error) {
	d, err := descriptor.LoadDomainFile(domainPath)
	if err != nil {
		return nil, err
	}
	p, err := descriptor.LoadProblemFile(d, problemPath)
	if err != nil {
		return nil, err
	}
	return a.taskFor(d, p)
}

func (a *app) taskFor(d *model.Domain, p *model.Problem) (*planner.Task, error) {
	t := a.newTask()
	t.LoadDomain(d)
	if err := t.LoadProblem(p); err != nil {
		return nil, err
	}
	a.log.Debug("task loaded",
		zap.String("domain", d.Name),
		zap.String("problem", p.Name),
		zap.Int("objects", p.Objects.Len()),
		zap.Int("schemas", len(d.Schemas)),
	)
	return t, nil
}

// parseAction resolves bracket notation against the task's objects.
func parseAction(t *planner.Task, text string) (string, model.Tuple, error) {
	name, args, err := encode.ParseGround(text, t.Problem().Objects)
	if err != nil {
		return "", nil, fmt.Errorf("action %q: %w", text, err)
	}
	return name, args, nil
}

// printLines writes one entry per line.
func (a *app) printLines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(a.out, l)
	}
}

// printJSON writes v to the command output as indented JSON.
func (a *app) printJSON(v interface{}) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
