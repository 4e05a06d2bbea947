package engine

import (
	"context"
	"fmt"

	"unpacker/pkg/diskspace"
	"unpacker/pkg/extractor"
	"unpacker/pkg/finalizer"
	"unpacker/pkg/grouping"
	"unpacker/pkg/iolimiter"
	"unpacker/pkg/metadata"
	"unpacker/pkg/orchestrator"
	"unpacker/pkg/safepath"
	"unpacker/pkg/trash"
)

// LogSink is the host's log line surface (§6 host interface i): the core
// performs no direct terminal or window I/O and instead hands finished
// lines to the host.
type LogSink interface {
	Log(line string)
}

// Result is what the host's completion callback (§6 host interface iii)
// receives once a run drains.
type Result struct {
	RunID   string
	Summary orchestrator.Summary
	Line    string
}

// CompletionCallback is the host's completion surface.
type CompletionCallback func(Result)

// Run wires the probe, grouping, disk-space, IO-limiter, extraction,
// orchestration, and finalization packages together and drives one
// end-to-end pass over cfg.WorkingDir (§6 host interface ii supplies
// WorkingDir and Passwords via cfg). Run blocks until the orchestrator
// drains and the finalizer completes, then reports through sink and
// onComplete.
func Run(ctx context.Context, cfg Config, sink LogSink, onComplete CompletionCallback) error {
	validator, err := safepath.New(cfg.WorkingDir)
	if err != nil {
		return fmt.Errorf("validate working directory: %w", err)
	}

	metaDir, err := metadata.Init(cfg.WorkingDir, validator)
	if err != nil {
		return fmt.Errorf("initialize metadata directory: %w", err)
	}

	runID := metadata.NewRunID()

	trasher, err := trash.New(metaDir, runID, validator)
	if err != nil {
		return fmt.Errorf("initialize trash: %w", err)
	}

	space := diskspace.NewManager(cfg.WorkingDir, trasher)
	gate := iolimiter.NewGate(cfg.MinWorkers, cfg.MaxCap, cfg.StartLimit)

	samplerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sampler := iolimiter.NewSampler(
		cfg.SampleInterval,
		iolimiter.NewSystemCounterReader(),
		iolimiter.Thresholds{Low: cfg.LowThroughput, High: cfg.HighThroughput},
		gate,
	)
	go sampler.Run(samplerCtx)

	invoker := extractor.NewSubprocessInvoker(cfg.ResourceDir, cfg.ExtractorBinaryName)
	tracker := grouping.NewTracker()
	scanner := grouping.New(tracker, validator)
	worker := extractor.NewWorker(
		gate, space, invoker, validator, tracker,
		cfg.Passwords, cfg.SpaceHeadroomGB, cfg.RetryHeadroomGB,
	)

	orch := orchestrator.New(scanner, worker, tracker, cfg.MaxCap, cfg.OnProgress)

	summary, err := orch.Run(ctx, cfg.WorkingDir)
	if err != nil {
		return fmt.Errorf("run orchestrator: %w", err)
	}

	fin := finalizer.New(space, validator)

	line, err := fin.Run(cfg.WorkingDir, summary)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}

	if sink != nil {
		sink.Log(line)
	}

	result := Result{RunID: runID, Summary: summary, Line: line}
	if onComplete != nil {
		onComplete(result)
	}

	return nil
}
