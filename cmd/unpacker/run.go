package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"unpacker/pkg/engine"
	"unpacker/pkg/metadata"
	"unpacker/pkg/safepath"
)

// stdoutSink is the LogSink host interface (§6 host interface i) for this
// terminal stand-in: it just prints the line.
type stdoutSink struct{}

func (stdoutSink) Log(line string) {
	fmt.Println(line)
}

func runUnpacker(_ *cobra.Command, args []string) error {
	rootDir, err := validateAndResolvePath(args[0])
	if err != nil {
		return err
	}

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	lock, err := acquireRunLock(rootDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	cfg := engine.DefaultConfig(rootDir)
	cfg.Passwords = passwords
	cfg.MinWorkers = minWorkers
	cfg.MaxCap = maxWorkers
	cfg.StartLimit = startLimit
	cfg.SampleInterval = sampleInterval
	cfg.LowThroughput = uint64(lowThroughput)
	cfg.HighThroughput = uint64(highThroughput)
	cfg.SpaceHeadroomGB = spaceHeadroomGB
	cfg.RetryHeadroomGB = retryHeadroomGB
	cfg.ResourceDir = resourceDir
	cfg.ExtractorBinaryName = binaryName
	cfg.OnProgress = func(stage string, processed, total int) {
		fmt.Fprintf(os.Stderr, "%s: %d/%d\n", stage, processed, total)
	}

	var failureCount int
	err = engine.Run(context.Background(), cfg, stdoutSink{}, func(result engine.Result) {
		failureCount = len(result.Summary.Failures)
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if failureCount > 0 {
		return fmt.Errorf("%d task(s) failed, see %s", failureCount, filepath.Join(rootDir, "failed_log.txt"))
	}

	return nil
}

// acquireRunLock obtains a cross-platform advisory lock scoped to rootDir,
// preventing a second unpacker process from targeting the same directory
// concurrently. It fails fast rather than blocking, since a stuck lock
// almost always means a prior run is genuinely still in progress.
func acquireRunLock(rootDir string) (*flock.Flock, error) {
	validator, err := safepath.New(rootDir)
	if err != nil {
		return nil, fmt.Errorf("validate target directory: %w", err)
	}

	metaDir, err := metadata.Init(rootDir, validator)
	if err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	lock := flock.New(metaDir.LockPath())

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another unpacker run already holds the lock on %s", rootDir)
	}

	return lock, nil
}
