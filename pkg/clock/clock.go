// Package clock numbers the states of a planning task.
//
// Every state installed in a task gets the next generation: the initial
// state is generation 0 and each ReplaceState ticks the counter. A run
// persisted in the store is resumed by seeding the counter with the latest
// recorded generation.
package clock

import "sync/atomic"

// Generation is a monotonic state counter. It is safe for concurrent use.
type Generation struct {
	v atomic.Int64
}

// Tick advances the counter and returns the new generation.
func (g *Generation) Tick() int64 { return g.v.Add(1) }

// Value returns the current generation without advancing it.
func (g *Generation) Value() int64 { return g.v.Load() }

// Set seeds the counter, e.g. from the latest stored generation of a run.
func (g *Generation) Set(v int64) { g.v.Store(v) }
