package grouping

import "sync"

// Tracker records which group keys have been claimed by a scan (processed)
// and which are currently owned by a worker (in-progress). A group key is
// extracted at most once: the first scan to claim it under the mutex wins.
type Tracker struct {
	mu         sync.Mutex
	processed  map[string]bool
	inProgress map[string]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		processed:  make(map[string]bool),
		inProgress: make(map[string]bool),
	}
}

// TryClaim atomically checks whether key is already processed or
// in-progress and, if not, marks it processed. It reports whether the
// caller won the claim. processed only grows: once added, a key is never
// removed.
func (t *Tracker) TryClaim(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.processed[key] || t.inProgress[key] {
		return false
	}

	t.processed[key] = true

	return true
}

// MarkInProgress sets the in-progress flag for key. Callers must have
// already won the claim via TryClaim.
func (t *Tracker) MarkInProgress(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inProgress[key] = true
}

// ClearInProgress clears the in-progress flag for key. The key remains in
// processed, so it will never be rediscovered by a later scan.
func (t *Tracker) ClearInProgress(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inProgress, key)
}

// InProgressCount returns how many keys currently have the in-progress flag
// set.
func (t *Tracker) InProgressCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inProgress)
}
