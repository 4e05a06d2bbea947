package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/avast/retry-go/v4"

	"unpacker/pkg/diskspace"
	"unpacker/pkg/grouping"
	"unpacker/pkg/iolimiter"
	"unpacker/pkg/safepath"
)

// maxRetries bounds the out-of-space retry loop. Iterative, not recursive,
// to keep the retry budget explicit and avoid unbounded stack growth.
const maxRetries = 3

// Outcome is the result of processing one task. Exactly one of OutDir and
// Failure is set on a terminal result; both are empty when the task's
// initial space check failed before any extractor invocation was attempted
// — per the design, that case returns no result at all (the key stays
// processed; it is not retried and not counted as a failure).
type Outcome struct {
	OutDir  string
	Failure *FailureRecord
}

// attemptError is the internal control-flow error used to drive the
// retry-go loop: retryable errors trigger another pass through Step 4a,
// non-retryable ones stop the loop immediately.
type attemptError struct {
	retryable bool
	outcome   Outcome
	noResult  bool
}

func (e *attemptError) Error() string {
	if e.noResult {
		return "space check failed before any extraction attempt"
	}
	if e.outcome.Failure != nil {
		return fmt.Sprintf("extraction failed: %s", e.outcome.Failure.Kind)
	}
	return "extraction attempt failed"
}

// Worker performs the per-task extraction pipeline: admission, space
// assurance, password trial, subprocess invocation, classification, and
// cleanup.
type Worker struct {
	gate            *iolimiter.Gate
	space           *diskspace.Manager
	invoker         Invoker
	validator       *safepath.Validator
	tracker         *grouping.Tracker
	passwords       []string
	spaceHeadroomGB float64
	retryHeadroomGB float64
}

// defaultSpaceHeadroomGB and defaultRetryHeadroomGB are the headroom values
// from spec §4.6 steps 4a and 4e, used when NewWorker is given zero for
// either.
const (
	defaultSpaceHeadroomGB = 5
	defaultRetryHeadroomGB = 10
)

// NewWorker returns a Worker wired to the given admission gate, space
// manager, extractor invoker, output-path validator, and shared tracker.
// A zero spaceHeadroomGB or retryHeadroomGB falls back to the spec's
// documented defaults (5 GiB, 10 GiB).
func NewWorker(
	gate *iolimiter.Gate,
	space *diskspace.Manager,
	invoker Invoker,
	validator *safepath.Validator,
	tracker *grouping.Tracker,
	passwords []string,
	spaceHeadroomGB, retryHeadroomGB float64,
) *Worker {
	if spaceHeadroomGB == 0 {
		spaceHeadroomGB = defaultSpaceHeadroomGB
	}
	if retryHeadroomGB == 0 {
		retryHeadroomGB = defaultRetryHeadroomGB
	}

	return &Worker{
		gate:            gate,
		space:           space,
		invoker:         invoker,
		validator:       validator,
		tracker:         tracker,
		passwords:       passwords,
		spaceHeadroomGB: spaceHeadroomGB,
		retryHeadroomGB: retryHeadroomGB,
	}
}

// Process runs the full pipeline for task and returns its Outcome. Process
// always releases the admission slot and clears the in-progress flag on
// every exit path, including a panic recovered from an errant invoker.
func (w *Worker) Process(ctx context.Context, task grouping.Task) (outcome Outcome) {
	w.gate.Admit()
	w.tracker.MarkInProgress(task.GroupKey)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("extractor: worker panicked", "group_key", task.GroupKey, "panic", r)
			outcome = Outcome{Failure: &FailureRecord{
				DisplayName: filepath.Base(task.MainPath),
				Kind:        KindUnknown,
			}}
		}
		w.tracker.ClearInProgress(task.GroupKey)
		w.gate.Release()
	}()

	outDir := filepath.Join(filepath.Dir(task.MainPath), filepath.Base(task.GroupKey))
	if err := w.validator.SafeMkdirAll(outDir); err != nil {
		slog.Error("extractor: cannot create output directory", "out_dir", outDir, "error", err)
		return Outcome{Failure: &FailureRecord{
			DisplayName: filepath.Base(task.MainPath),
			Kind:        KindFatal,
		}}
	}

	var attempt Outcome
	retryErr := retry.Do(
		func() error {
			result, attemptErr := w.attempt(ctx, task, outDir)
			attempt = result
			return attemptErr
		},
		retry.Attempts(maxRetries),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var ae *attemptError
			return errors.As(err, &ae) && ae.retryable
		}),
	)

	if retryErr == nil {
		return attempt
	}

	var ae *attemptError
	if errors.As(retryErr, &ae) {
		if ae.noResult {
			return Outcome{}
		}
		if ae.retryable {
			// The retry budget was exhausted while every attempt remained
			// retryable (ensure_space(10 GiB) kept succeeding) — the task
			// still failed for lack of space, so it is reported as such
			// rather than silently dropped.
			w.cleanupOutDir(outDir)
			return Outcome{Failure: &FailureRecord{
				DisplayName: filepath.Base(task.MainPath),
				Kind:        KindOutOfSpace,
			}}
		}
		return ae.outcome
	}

	return attempt
}

// attempt runs one pass through steps 4a-4f: ensure space, trial passwords,
// extract, and classify. It returns a non-nil error whenever the loop
// should stop or retry; the caller inspects the error via attemptError to
// decide which.
func (w *Worker) attempt(ctx context.Context, task grouping.Task, outDir string) (Outcome, error) {
	displayName := filepath.Base(task.MainPath)

	if !w.space.EnsureSpace(w.spaceHeadroomGB) {
		w.cleanupOutDir(outDir)
		return Outcome{}, &attemptError{noResult: true}
	}

	matched, testOK := w.tryPasswords(ctx, task.MainPath)
	if !testOK {
		w.cleanupOutDir(outDir)
		failure := &FailureRecord{DisplayName: displayName, Kind: KindWrongPassword}
		return Outcome{Failure: failure}, &attemptError{outcome: Outcome{Failure: failure}}
	}

	result := w.invoker.Extract(ctx, task.MainPath, outDir, matched)

	if result.ExitCode == 0 {
		slog.Info("extractor: extraction succeeded", "group_key", task.GroupKey, "out_dir", outDir)
		w.space.Queue().Push(task.MemberPaths)
		return Outcome{OutDir: outDir}, nil
	}

	if isOutOfSpace(result.ExitCode, result.Stderr) {
		if w.space.EnsureSpace(w.retryHeadroomGB) {
			return Outcome{}, &attemptError{retryable: true}
		}

		w.cleanupOutDir(outDir)
		failure := &FailureRecord{DisplayName: displayName, Kind: KindOutOfSpace}
		return Outcome{Failure: failure}, &attemptError{outcome: Outcome{Failure: failure}}
	}

	w.cleanupOutDir(outDir)
	kind := classifyExit(result.ExitCode, result.Stderr)
	failure := &FailureRecord{DisplayName: displayName, Kind: kind}

	return Outcome{Failure: failure}, &attemptError{outcome: Outcome{Failure: failure}}
}

// tryPasswords trials each candidate password (the caller-supplied list
// plus a trailing empty password) in test mode, stopping at the first
// zero-exit. A test failure whose stderr does not indicate a wrong
// password aborts the trial early — further passwords would not help
// against a corrupt or unsupported archive. It returns the matched
// password and true on success.
func (w *Worker) tryPasswords(ctx context.Context, archive string) (string, bool) {
	candidates := make([]string, 0, len(w.passwords)+1)
	candidates = append(candidates, w.passwords...)
	candidates = append(candidates, "")

	for _, pw := range candidates {
		result := w.invoker.Test(ctx, archive, pw)
		if result.ExitCode == 0 {
			return pw, true
		}
		if !isWrongPassword(result.Stderr) {
			break
		}
	}

	return "", false
}

func (w *Worker) cleanupOutDir(outDir string) {
	if err := w.validator.SafeRemoveAll(outDir); err != nil {
		slog.Debug("extractor: cannot remove failed output directory", "out_dir", outDir, "error", err)
	}
}
