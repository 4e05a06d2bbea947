// Package engine wires the probe, grouping, disk-space, IO-limiter,
// extraction, orchestration, and finalization packages into one runnable
// unit: Config documents every tunable, Run drives one end-to-end pass.
package engine

import (
	"time"

	"unpacker/pkg/orchestrator"
)

// Config holds every tunable named by the extraction pipeline (§4.5, §4.6)
// and the orchestrator (§4.7), with the defaults the engine starts from
// when a host does not override them.
type Config struct {
	// WorkingDir is the root directory scanned for archives and flattened
	// at the end of the run.
	WorkingDir string

	// Passwords is the ordered candidate list trialed against encrypted
	// archives, per task, before the trailing empty-password attempt.
	Passwords []string

	// MinWorkers and MaxCap bound the admission gate's effective
	// concurrency (§4.5); MaxCap also sizes the orchestrator's
	// submitted-futures cap (2x), which bounds the task goroutines in flight.
	MinWorkers int
	MaxCap     int

	// StartLimit seeds the gate's initial concurrency, clamped to
	// [MinWorkers, MaxCap].
	StartLimit int

	// SampleInterval is how often the IO sampler reads throughput counters.
	SampleInterval time.Duration

	// LowThroughput and HighThroughput bound the bytes-per-interval bands
	// that drive the sampler's limit adjustment (§4.5): below Low, the
	// limit rises; at or above High, it falls.
	LowThroughput  uint64
	HighThroughput uint64

	// SpaceHeadroomGB and RetryHeadroomGB are the two ensure_space
	// headroom values used by the extraction worker's password trial loop
	// (§4.6 steps 4a and 4e).
	SpaceHeadroomGB float64
	RetryHeadroomGB float64

	// ResourceDir and ExtractorBinaryName locate the external archiver
	// binary (§6): ResourceDir is checked first, then ExtractorBinaryName
	// is left bare for the OS path to resolve.
	ResourceDir         string
	ExtractorBinaryName string

	// OnProgress, if set, is called by the orchestrator after each task
	// reaches a terminal outcome, with the running processed/total counts.
	// It is not one of the three host interfaces named by §6; a host that
	// doesn't need progress reporting leaves it nil.
	OnProgress orchestrator.ProgressCallback
}

// DefaultConfig returns a Config seeded with the engine's documented
// defaults for every tunable except WorkingDir, which the caller must set.
func DefaultConfig(workingDir string) Config {
	return Config{
		WorkingDir:          workingDir,
		MinWorkers:          1,
		MaxCap:              4,
		StartLimit:          2,
		SampleInterval:      2 * time.Second,
		LowThroughput:       10 * 1 << 20, // 10 MiB/interval
		HighThroughput:      80 * 1 << 20, // 80 MiB/interval
		SpaceHeadroomGB:     5,
		RetryHeadroomGB:     10,
		ResourceDir:         "",
		ExtractorBinaryName: "7zz",
	}
}
