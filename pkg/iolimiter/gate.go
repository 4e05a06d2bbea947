// Package iolimiter implements the IO-adaptive limiter: a periodic disk
// throughput sampler that raises or lowers a shared concurrency limit in
// bounded steps, and the admission gate workers block on to respect it.
package iolimiter

import "sync"

// Gate is a counted admission gate expressed as (mutex, condvar,
// current_limit, active_workers) rather than a raw semaphore — mutating a
// semaphore's internal counter directly to shrink it mid-flight is unsound,
// while adjusting current_limit and broadcasting on this condition variable
// safely wakes surplus waiters without corrupting any counter.
type Gate struct {
	mu            sync.Mutex
	cond          *sync.Cond
	currentLimit  int
	activeWorkers int
	minWorkers    int
	maxCap        int
}

// NewGate returns a Gate seeded at startLimit, bounded to [minWorkers, maxCap].
func NewGate(minWorkers, maxCap, startLimit int) *Gate {
	if startLimit < minWorkers {
		startLimit = minWorkers
	}
	if startLimit > maxCap {
		startLimit = maxCap
	}

	g := &Gate{
		currentLimit: startLimit,
		minWorkers:   minWorkers,
		maxCap:       maxCap,
	}
	g.cond = sync.NewCond(&g.mu)

	return g
}

// Admit blocks until active workers is below the current limit, then
// increments it and returns. Pair every Admit with a Release.
func (g *Gate) Admit() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.activeWorkers >= g.currentLimit {
		g.cond.Wait()
	}

	g.activeWorkers++
}

// Release decrements active workers and wakes any blocked admission
// waiters.
func (g *Gate) Release() {
	g.mu.Lock()
	g.activeWorkers--
	g.mu.Unlock()
	g.cond.Broadcast()
}

// SetLimit clamps n to [minWorkers, maxCap], replaces current_limit, and
// broadcasts so admission waiters re-evaluate against the new limit — this
// is what lets the effective parallelism shrink without killing in-flight
// work: surplus workers simply block at their next Admit.
func (g *Gate) SetLimit(n int) {
	if n < g.minWorkers {
		n = g.minWorkers
	}
	if n > g.maxCap {
		n = g.maxCap
	}

	g.mu.Lock()
	g.currentLimit = n
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Limit returns the current admission cap.
func (g *Gate) Limit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentLimit
}

// Active returns the current number of admitted workers.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeWorkers
}

// MaxCap returns the gate's upper bound.
func (g *Gate) MaxCap() int {
	return g.maxCap
}

// MinWorkers returns the gate's lower bound.
func (g *Gate) MinWorkers() int {
	return g.minWorkers
}
