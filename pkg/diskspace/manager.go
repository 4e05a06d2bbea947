// Package diskspace implements the space manager: an ordered eviction queue
// of successfully extracted source archives, and a free-space headroom
// check that evicts the oldest entries when space runs low.
package diskspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
)

// ErrCriticallyLow is returned by EnsureSpace when free space remains below
// the requested headroom and the eviction queue has nothing left to evict.
var ErrCriticallyLow = errors.New("free space below headroom and nothing left to evict")

const bytesPerGB = 1 << 30

// Evictor soft-deletes a file, falling back to a hard delete on failure.
// pkg/trash's Trasher satisfies this.
type Evictor interface {
	Trash(path string) error
}

// Manager tracks the extracted-archives queue for one working volume and
// evicts oldest-first when free space falls below a caller-supplied
// headroom.
type Manager struct {
	workingDir string
	queue      *Queue
	evictor    Evictor
}

// NewManager returns a Manager that queries free space on workingDir's
// volume and evicts via evictor.
func NewManager(workingDir string, evictor Evictor) *Manager {
	return &Manager{
		workingDir: workingDir,
		queue:      NewQueue(),
		evictor:    evictor,
	}
}

// Queue exposes the underlying FIFO so F can push successful extractions
// and H can drain what remains.
func (m *Manager) Queue() *Queue {
	return m.queue
}

// FreeBytes returns the current free space on the working volume.
func (m *Manager) FreeBytes() (uint64, error) {
	usage, err := disk.Usage(m.workingDir)
	if err != nil {
		return 0, fmt.Errorf("query disk usage: %w", err)
	}

	return usage.Free, nil
}

// EnsureSpace loops: if free space already exceeds headroomGB, it returns
// true immediately. Otherwise it pops the oldest queue entry and evicts
// every member that still exists (soft-delete preferred, hard delete on
// failure, per-file failures ignored), then re-checks. It returns false —
// and logs a CRITICAL event — when the queue empties before headroom is
// satisfied.
func (m *Manager) EnsureSpace(headroomGB float64) bool {
	headroomBytes := uint64(headroomGB * bytesPerGB)

	for {
		free, err := m.FreeBytes()
		if err != nil {
			slog.Error("diskspace: cannot query free space", "error", err)
			return false
		}

		if free > headroomBytes {
			return true
		}

		members, ok := m.queue.Pop()
		if !ok {
			slog.Error("diskspace: critical", "critical", true,
				"headroom_gb", headroomGB, "free_gb", float64(free)/bytesPerGB)
			return false
		}

		m.evictMembers(members)
	}
}

// FinalizeEvictions drains every remaining queue entry and evicts it,
// best-effort. The finalizer calls this after the orchestrator drains, to
// reclaim space from successfully extracted source archives that were
// never needed for eviction during the run.
func (m *Manager) FinalizeEvictions() {
	for {
		members, ok := m.queue.Pop()
		if !ok {
			return
		}
		m.evictMembers(members)
	}
}

// evictMembers deletes every path in members that still exists. Soft-delete
// is attempted first; on failure a hard delete is attempted as fallback.
// Per-file failures are logged and ignored — eviction continues with the
// remaining members.
func (m *Manager) evictMembers(members []string) {
	for _, path := range members {
		if _, statErr := os.Lstat(path); statErr != nil {
			continue
		}

		if err := m.evictor.Trash(path); err != nil {
			slog.Debug("diskspace: soft-delete failed, falling back to hard delete",
				"path", path, "error", err)

			if hardErr := os.Remove(path); hardErr != nil {
				slog.Debug("diskspace: hard delete also failed", "path", path, "error", hardErr)
			}
		}
	}
}
