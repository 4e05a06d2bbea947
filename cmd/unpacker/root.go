package main

import (
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose         bool
	passwords       []string
	minWorkers      int
	maxWorkers      int
	startLimit      int
	sampleInterval  time.Duration
	lowThroughput   int64
	highThroughput  int64
	spaceHeadroomGB float64
	retryHeadroomGB float64
	resourceDir     string
	binaryName      string
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "unpacker [path]",
		Version: version,
		Short:   "Batch-extract nested, multi-volume, and password-protected archives",
		Long: `unpacker scans a directory tree for archives, extracts them (trying a
list of candidate passwords against encrypted members), recurses into
any archives that extraction itself reveals, and flattens the
resulting single-child directory chains once nothing remains pending.

Safety:
  Extraction never writes outside the scanned directory tree.
  Evicted source archives move to .unpacker/trash/<run-id>/; a hard delete is used only if that move fails.
  A failed_log.txt manifest is written at the root if any task failed.
  Advisory locking prevents two unpacker processes from targeting the same root.

Examples:
  unpacker ./downloads
  unpacker --password hunter2 --password correcthorse ./downloads
  unpacker --max-workers 8 --resource-dir ./bin ./downloads`,
		Args: cobra.ExactArgs(1),
		RunE: runUnpacker,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose log output")
	cmd.PersistentFlags().StringArrayVar(&passwords, "password", nil, "Candidate password to trial against encrypted archives (repeatable)")
	cmd.PersistentFlags().IntVar(&minWorkers, "min-workers", 1, "Lower bound for concurrent extractions")
	cmd.PersistentFlags().IntVar(&maxWorkers, "max-workers", 4, "Upper bound for concurrent extractions")
	cmd.PersistentFlags().IntVar(&startLimit, "start-limit", 2, "Initial concurrent-extraction limit")
	cmd.PersistentFlags().DurationVar(&sampleInterval, "sample-interval", 2*time.Second, "IO throughput sampling interval")
	cmd.PersistentFlags().Int64Var(&lowThroughput, "low-throughput", 10*1<<20, "Bytes/interval below which the concurrency limit rises")
	cmd.PersistentFlags().Int64Var(&highThroughput, "high-throughput", 80*1<<20, "Bytes/interval at or above which the concurrency limit falls")
	cmd.PersistentFlags().Float64Var(&spaceHeadroomGB, "space-headroom-gb", 5, "Free space required before trying a password/extraction")
	cmd.PersistentFlags().Float64Var(&retryHeadroomGB, "retry-headroom-gb", 10, "Free space required after an out-of-space eviction pass before retrying")
	cmd.PersistentFlags().StringVar(&resourceDir, "resource-dir", "", "Directory to check first for the extractor binary before falling back to the OS path")
	cmd.PersistentFlags().StringVar(&binaryName, "binary-name", "7zz", "Extractor binary name")

	return cmd
}
