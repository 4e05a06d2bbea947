package extractor

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
)

// Result is the outcome of one subprocess invocation.
type Result struct {
	ExitCode int
	Stderr   string
}

// Invoker runs the external multi-format archiver in test or extract mode.
// SubprocessInvoker is the production implementation; tests substitute a
// fake.
type Invoker interface {
	Test(ctx context.Context, archive, password string) Result
	Extract(ctx context.Context, archive, outDir, password string) Result
}

// SubprocessInvoker shells out to an external multi-format archiver binary.
type SubprocessInvoker struct {
	binaryPath string
}

// NewSubprocessInvoker resolves the extractor binary: a bundled resource
// directory is checked first, then the bare name is left for the OS path to
// resolve at exec time.
func NewSubprocessInvoker(resourceDir, binaryName string) *SubprocessInvoker {
	candidate := filepath.Join(resourceDir, binaryName)
	if _, err := exec.LookPath(candidate); err == nil {
		return &SubprocessInvoker{binaryPath: candidate}
	}

	return &SubprocessInvoker{binaryPath: binaryName}
}

// Test runs an integrity test against archive with the given password (may
// be empty).
func (s *SubprocessInvoker) Test(ctx context.Context, archive, password string) Result {
	args := []string{"t", archive}
	if password != "" {
		args = append(args, "-p"+password)
	}
	args = append(args, "-y")

	return s.run(ctx, args)
}

// Extract runs a full extraction of archive into outDir with the given
// password (may be empty), auto-confirming overwrite prompts.
func (s *SubprocessInvoker) Extract(ctx context.Context, archive, outDir, password string) Result {
	args := []string{"x", archive, "-o" + outDir}
	if password != "" {
		args = append(args, "-p"+password)
	}
	args = append(args, "-y")

	return s.run(ctx, args)
}

func (s *SubprocessInvoker) run(ctx context.Context, args []string) Result {
	cmd := exec.CommandContext(ctx, s.binaryPath, args...)
	configurePlatform(cmd)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Result{ExitCode: 0, Stderr: stderr.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}

	// The binary could not be started at all (not found, permissions).
	return Result{ExitCode: -1, Stderr: err.Error()}
}
