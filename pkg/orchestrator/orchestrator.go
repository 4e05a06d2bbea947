// Package orchestrator drives the pending-task deque, submits tasks to
// extraction workers, rescans completed output directories for cascading
// archives, and terminates once nothing remains pending, in flight, or
// in-progress.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"unpacker/pkg/extractor"
	"unpacker/pkg/grouping"
	"unpacker/pkg/progress"
)

// idlePollInterval is how long the orchestrator sleeps when nothing is
// pending and nothing is submitted, awaiting new work produced elsewhere.
// There is none in this single-producer design, but the poll keeps the
// loop from spinning and doubles as the re-evaluation tick for the
// termination predicate.
const idlePollInterval = 20 * time.Millisecond

// completionTimeout bounds how long Run waits for at least one completion
// before re-evaluating its termination predicate, per the spec's ~1s
// completion-wait timeout.
const completionTimeout = time.Second

// futureCapMultiplier bounds the submitted-futures set at 2x the worker
// pool's max_cap, independent of the admission gate's own current_limit —
// this lets the orchestrator keep a healthy backlog of goroutines blocked
// at admission without unbounded goroutine growth.
const futureCapMultiplier = 2

// Summary reports the outcome of a drained run.
type Summary struct {
	Elapsed      time.Duration
	SuccessCount int
	Failures     []*extractor.FailureRecord
}

// ProgressCallback reports how many of the tasks discovered so far (total,
// which grows as cascades are found) have reached a terminal outcome
// (processed). stage is always "extracting"; the label exists so a future
// multi-stage host UI can distinguish it from other phases without a
// breaking signature change.
type ProgressCallback func(stage string, processed, total int)

// Orchestrator coordinates scanning, submission, and completion draining.
type Orchestrator struct {
	scanner    *grouping.Scanner
	worker     *extractor.Worker
	tracker    *grouping.Tracker
	maxCap     int
	onProgress ProgressCallback
}

// New returns an Orchestrator that submits at most maxCap concurrent
// extractions (enforced by the worker's admission gate) and never holds
// more than 2*maxCap tasks in flight at once. onProgress may be nil.
func New(scanner *grouping.Scanner, worker *extractor.Worker, tracker *grouping.Tracker, maxCap int, onProgress ProgressCallback) *Orchestrator {
	return &Orchestrator{
		scanner:    scanner,
		worker:     worker,
		tracker:    tracker,
		maxCap:     maxCap,
		onProgress: onProgress,
	}
}

type completion struct {
	task    grouping.Task
	outcome extractor.Outcome
}

// Run scans rootDir, drives extraction and cascade rescanning to
// completion, and returns a summary. Run blocks until the termination
// predicate holds: pending is empty, no tasks are in flight, and no group
// key remains in-progress.
func (o *Orchestrator) Run(ctx context.Context, rootDir string) (Summary, error) {
	start := time.Now()

	pending, err := o.scanner.Scan(rootDir)
	if err != nil {
		return Summary{}, err
	}

	futureCap := o.maxCap * futureCapMultiplier
	completions := make(chan completion, futureCap)
	submitted := 0

	// The submitted-futures set is modeled as an errgroup: every task runs
	// inside eg.Go and always returns nil, since per-task failures are
	// captured as FailureRecord values and never propagate (§7). The group
	// exists for goroutine lifecycle grouping and a final Wait, not for its
	// error return.
	var eg errgroup.Group

	var successCount int
	var failures []*extractor.FailureRecord
	total := len(pending)
	processed := 0

	for {
		for len(pending) > 0 && submitted < futureCap {
			task := pending[0]
			pending = pending[1:]
			submitted++

			eg.Go(func() error {
				outcome := o.worker.Process(ctx, task)
				completions <- completion{task: task, outcome: outcome}
				return nil
			})
		}

		if submitted == 0 && len(pending) == 0 {
			if o.tracker.InProgressCount() == 0 {
				break
			}
			time.Sleep(idlePollInterval)
			continue
		}

		select {
		case c := <-completions:
			submitted--
			pending = o.handleCompletion(c, &successCount, &failures, pending, &total, &processed)
			pending = o.drainReady(completions, &submitted, &successCount, &failures, pending, &total, &processed)
		case <-time.After(completionTimeout):
		}
	}

	_ = eg.Wait()

	return Summary{
		Elapsed:      time.Since(start),
		SuccessCount: successCount,
		Failures:     failures,
	}, nil
}

// drainReady consumes every completion already buffered on the channel
// without blocking, so a burst of simultaneous finishers is processed in
// one pass before the orchestrator re-evaluates submission.
func (o *Orchestrator) drainReady(
	completions chan completion,
	submitted *int,
	successCount *int,
	failures *[]*extractor.FailureRecord,
	pending []grouping.Task,
	total *int,
	processed *int,
) []grouping.Task {
	for {
		select {
		case c := <-completions:
			*submitted--
			pending = o.handleCompletion(c, successCount, failures, pending, total, processed)
		default:
			return pending
		}
	}
}

func (o *Orchestrator) handleCompletion(
	c completion,
	successCount *int,
	failures *[]*extractor.FailureRecord,
	pending []grouping.Task,
	total *int,
	processed *int,
) []grouping.Task {
	switch {
	case c.outcome.Failure != nil:
		*failures = append(*failures, c.outcome.Failure)
	case c.outcome.OutDir != "":
		*successCount++

		cascaded, err := o.scanner.Scan(c.outcome.OutDir)
		if err != nil {
			slog.Error("orchestrator: cascade rescan failed", "out_dir", c.outcome.OutDir, "error", err)
		} else {
			*total += len(cascaded)
			pending = append(pending, cascaded...)
		}
	}

	*processed++
	progress.EmitStage(o.onProgress, "extracting", *processed, *total)

	return pending
}
