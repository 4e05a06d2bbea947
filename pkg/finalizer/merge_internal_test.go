package finalizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unpacker/pkg/diskspace"
	"unpacker/pkg/safepath"
)

// TestMergeChildIntoParent_ResolvesNameCollision exercises
// mergeChildIntoParent directly against a parent that already holds an
// entry with the same name as one produced by the child — a case the
// top-level bottom-up walk in flattenTree reaches only when the child holds
// an entry named like the child itself, since a qualifying parent by
// definition starts out holding nothing but the one child directory.
func TestMergeChildIntoParent_ResolvesNameCollision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	validator, err := safepath.New(dir)
	require.NoError(t, err)

	evictor := &noopEvictorStub{}
	space := diskspace.NewManager(dir, evictor)
	f := New(space, validator)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), []byte("outer"), 0o644))
	child := filepath.Join(dir, "only-child")
	require.NoError(t, os.MkdirAll(child, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(child, "report.txt"), []byte("inner"), 0o644))

	require.NoError(t, f.mergeChildIntoParent(dir, child))

	assert.FileExists(t, filepath.Join(dir, "report.txt"))
	assert.FileExists(t, filepath.Join(dir, "report (1).txt"))
	assert.NoDirExists(t, child)
}

type noopEvictorStub struct{}

func (noopEvictorStub) Trash(string) error { return nil }
