// Package finalizer runs the engine's end-of-run cleanup: draining the
// eviction queue, flattening single-child directory chains, and emitting
// the run summary and failure manifest.
package finalizer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"unpacker/pkg/diskspace"
	"unpacker/pkg/extractor"
	"unpacker/pkg/metadata"
	"unpacker/pkg/orchestrator"
	"unpacker/pkg/safepath"
	"unpacker/pkg/sanitizer"
)

// failedLogName is the manifest written under the scanned root when any
// task failed.
const failedLogName = "failed_log.txt"

// Finalizer performs the post-drain cleanup pass.
type Finalizer struct {
	space     *diskspace.Manager
	validator *safepath.Validator
}

// New returns a Finalizer that drains space through manager and performs
// filesystem moves through validator.
func New(space *diskspace.Manager, validator *safepath.Validator) *Finalizer {
	return &Finalizer{space: space, validator: validator}
}

// Run drains the eviction queue, flattens single-child directory chains
// under rootDir, and writes the failure manifest if summary reports any
// failures. It returns the human-readable summary line.
func (f *Finalizer) Run(rootDir string, summary orchestrator.Summary) (string, error) {
	f.space.FinalizeEvictions()

	if err := f.flattenTree(rootDir); err != nil {
		slog.Error("finalizer: flatten pass failed", "root", rootDir, "error", err)
	}

	if len(summary.Failures) > 0 {
		if err := f.writeFailureManifest(rootDir, summary.Failures); err != nil {
			return "", err
		}
	}

	return formatSummary(summary), nil
}

func formatSummary(summary orchestrator.Summary) string {
	minutes := summary.Elapsed.Minutes()
	return fmt.Sprintf(
		"unpacker finished in %.1f minutes: %d succeeded, %d failed",
		minutes, summary.SuccessCount, len(summary.Failures),
	)
}

func (f *Finalizer) writeFailureManifest(rootDir string, failures []*extractor.FailureRecord) error {
	path := filepath.Join(rootDir, failedLogName)

	var body []byte
	for _, failure := range failures {
		body = append(body, fmt.Sprintf("%s: %s\n", failure.DisplayName, failure.Kind)...)
	}

	if err := f.validator.ValidatePath(path); err != nil {
		return fmt.Errorf("validate failure manifest path: %w", err)
	}

	return os.WriteFile(path, body, 0o644)
}

// flattenTree walks rootDir bottom-up and collapses every directory whose
// entries are exactly one subdirectory and no files into its parent,
// repeating until no directory in the subtree qualifies. Each directory's
// children are processed before the directory itself, so a chain of nested
// single-child directories collapses fully in one Run call.
func (f *Finalizer) flattenTree(rootDir string) error {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == metadata.DirName {
			continue
		}

		childPath := filepath.Join(rootDir, entry.Name())
		if err := f.flattenTree(childPath); err != nil {
			return err
		}
	}

	return f.flattenSingleChildChain(rootDir)
}

// flattenSingleChildChain repeatedly collapses rootDir while it contains
// exactly one subdirectory and no files, moving the subdirectory's entries
// up and removing the now-empty subdirectory.
func (f *Finalizer) flattenSingleChildChain(dir string) error {
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read directory: %w", err)
		}

		if len(entries) != 1 || !entries[0].IsDir() || entries[0].Name() == metadata.DirName {
			return nil
		}

		child := filepath.Join(dir, entries[0].Name())
		if err := f.mergeChildIntoParent(dir, child); err != nil {
			return err
		}
	}
}

// mergeChildIntoParent moves every entry of child into dir, resolving name
// collisions by appending " (N)" before the extension with increasing N,
// then removes the emptied child directory.
func (f *Finalizer) mergeChildIntoParent(dir, child string) error {
	grandchildren, err := os.ReadDir(child)
	if err != nil {
		return fmt.Errorf("read child directory: %w", err)
	}

	for _, gc := range grandchildren {
		src := filepath.Join(child, gc.Name())
		dest := f.resolveDestination(dir, gc.Name())

		if err := f.validator.SafeRename(src, dest); err != nil {
			return fmt.Errorf("move %s into %s: %w", src, dir, err)
		}
	}

	return f.validator.SafeRemoveDir(child)
}

// resolveDestination returns the first non-colliding path for name under
// dir, trying name itself first, then name with an increasing " (N)" suffix.
func (f *Finalizer) resolveDestination(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); err != nil {
		return candidate
	}

	for n := 1; ; n++ {
		resolved := sanitizer.ResolveFlattenCollision(name, n)
		candidate = filepath.Join(dir, resolved)
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
	}
}
