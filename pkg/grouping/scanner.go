package grouping

import (
	"log/slog"
	"path/filepath"
	"sort"

	"unpacker/pkg/collector"
	"unpacker/pkg/metadata"
	"unpacker/pkg/probe"
	"unpacker/pkg/safepath"
)

// invalidMember is the error-op type ValidateReadPaths constructs for a
// collected file that fails containment or symlink-escape validation.
type invalidMember struct {
	Path string
	Err  error
}

// Task is one logical archive admitted for extraction.
type Task struct {
	GroupKey    string
	MainPath    string
	MemberPaths []string
}

// candidate is a group bucket accumulated during the walk, before admission
// filtering.
type candidate struct {
	members  []string
	anyMagic bool
}

// Scanner walks a directory tree and buckets files into logical archives.
type Scanner struct {
	tracker   *Tracker
	collector *collector.Collector
	validator *safepath.Validator
}

// New returns a Scanner that claims group keys against tracker and rejects
// collected members that escape validator's root or resolve through an
// escaping symlink before they ever reach the probe.
func New(tracker *Tracker, validator *safepath.Validator) *Scanner {
	return &Scanner{
		tracker:   tracker,
		collector: collector.New(collector.Options{SkipDirs: []string{metadata.DirName}}),
		validator: validator,
	}
}

// Scan walks rootDir and returns every newly admitted group as a Task. A
// group is admitted only if its key is not already processed or
// in-progress, and at least one of its members passes the magic probe.
// Scan is re-entrant: calling it again against the same or a subdirectory
// tree after an extraction harvests cascades, returning only groups not
// previously claimed. The engine's own .unpacker/ metadata directory is
// never walked into.
func (s *Scanner) Scan(rootDir string) ([]Task, error) {
	collected, err := s.collector.Collect(rootDir)
	if err != nil {
		return nil, err
	}

	files, invalid := safepath.ValidateReadPaths(s.validator, collected,
		func(file collector.FileInfo, err error) invalidMember {
			return invalidMember{Path: file.Path, Err: err}
		})
	for _, inv := range invalid {
		slog.Warn("grouping: skipping file outside containment root", "path", inv.Path, "error", inv.Err)
	}

	buckets := make(map[string]*candidate)
	order := make([]string, 0)

	for _, file := range files {
		isMagic := probe.IsArchive(file.Path)
		if !isMagic && !MatchesFallback(file.Name) {
			continue
		}

		key := GroupKey(file.Dir, file.Name)

		b, ok := buckets[key]
		if !ok {
			b = &candidate{}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, file.Path)
		if isMagic {
			b.anyMagic = true
		}
	}

	tasks := make([]Task, 0, len(order))

	for _, key := range order {
		b := buckets[key]
		if !b.anyMagic {
			continue
		}
		if !s.tracker.TryClaim(key) {
			continue
		}

		sort.Strings(b.members)

		main := b.members[0]
		for _, m := range b.members {
			if IsMainEntry(filepath.Base(m)) {
				main = m
				break
			}
		}

		tasks = append(tasks, Task{
			GroupKey:    key,
			MainPath:    main,
			MemberPaths: b.members,
		})
	}

	return tasks, nil
}
