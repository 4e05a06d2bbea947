// Package metadata manages the .unpacker/ directory used for safety infrastructure.
package metadata

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"unpacker/pkg/safepath"
)

// DirName is the name of the metadata directory inside the target.
const DirName = ".unpacker"

// Dir provides access to the .unpacker/ metadata directory structure.
type Dir struct {
	root      string              // absolute path to .unpacker/
	validator *safepath.Validator // parent target's validator
}

// Init creates and returns a Dir for the given target root.
// It creates the .unpacker/ directory if it does not already exist.
func Init(targetRoot string, validator *safepath.Validator) (*Dir, error) {
	metaRoot := filepath.Join(targetRoot, DirName)

	if err := validator.SafeMkdirAll(metaRoot); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	return &Dir{
		root:      metaRoot,
		validator: validator,
	}, nil
}

// Root returns the absolute path to the .unpacker/ directory.
func (d *Dir) Root() string {
	return d.root
}

// TrashDir returns the trash directory path for a given run ID.
func (d *Dir) TrashDir(runID string) string {
	return filepath.Join(d.root, "trash", runID)
}

// LockPath returns the advisory lock file path.
func (d *Dir) LockPath() string {
	return filepath.Join(d.root, "lock")
}

// NewRunID generates a fresh run ID tagging one engine run, for log
// correlation and for naming its trash subdirectory. A UUID is used rather
// than a timestamp because automated bulk-unpack jobs may launch multiple
// runs within the same second.
func NewRunID() string {
	return uuid.NewString()
}
