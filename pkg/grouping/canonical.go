// Package grouping maps a flat set of filesystem entries into logical
// archives: single files, multi-part ".partNN.rar" sets, and suffix-numbered
// ".7z.NNN"/".zip.NNN" sets, folding every volume of one logical archive to a
// single group key without ever inspecting file content beyond the magic
// probe.
package grouping

import (
	"path/filepath"
	"regexp"
	"strings"
)

// partSuffix matches a trailing ".partNN.rar" volume suffix, case-insensitive.
var partSuffix = regexp.MustCompile(`(?i)\.part\d+\.rar$`)

// numberedSuffix matches a trailing ".(7z|zip|rar).NNN" volume suffix.
var numberedSuffix = regexp.MustCompile(`(?i)\.(7z|zip|rar)\.\d+$`)

// FallbackPattern is the multi-volume filename fallback used by the
// grouping scanner when the magic probe doesn't recognize a member's
// header (e.g. ".part2.rar", which carries no archive signature of its
// own). The specification's two source variants disagree on how
// permissive this pattern should be ("[rz]?\d+" vs "\d+" for the bare
// numeric suffix); the more permissive form is adopted here.
var FallbackPattern = regexp.MustCompile(`(?i)\.(part\d+\.rar|[rz]?\d+)$`)

// mainEntryPattern matches names that can serve as a group's main entry: the
// member on which the extractor must be invoked to process the whole set.
// The bare "rar" alternative matches every ".rar" name, including later
// ".partN.rar" volumes; the scanner picks the first match in sorted member
// order, which puts ".part1.rar"/".part01.rar" ahead of the rest.
var mainEntryPattern = regexp.MustCompile(`(?i)\.(part0*1\.rar|7z\.001|zip\.001|7z|zip|rar)$`)

// CanonicalBase computes the lowercase logical base name for a file name by
// stripping, in order: a trailing ".partNN.rar" suffix, else a trailing
// ".(7z|zip|rar).NNN" suffix, else the final extension. The result is
// trimmed of trailing whitespace and dots.
func CanonicalBase(name string) string {
	lower := strings.ToLower(name)

	switch {
	case partSuffix.MatchString(lower):
		lower = partSuffix.ReplaceAllString(lower, "")
	case numberedSuffix.MatchString(lower):
		lower = numberedSuffix.ReplaceAllString(lower, "")
	default:
		ext := filepath.Ext(lower)
		lower = strings.TrimSuffix(lower, ext)
	}

	lower = strings.TrimRight(lower, " \t.")

	return lower
}

// GroupKey computes the identity of a logical archive: the file's directory
// joined with its lowercase canonical base name. Two members that belong to
// the same logical archive always compute to the same key, regardless of
// which volume they are.
func GroupKey(dir, name string) string {
	return filepath.Join(strings.ToLower(dir), CanonicalBase(name))
}

// IsMainEntry reports whether name matches mainEntryPattern. It does not by
// itself single out the first volume of a ".partN.rar" set: any ".rar" name
// matches, so the scanner relies on sorted member order to choose part01.
func IsMainEntry(name string) bool {
	return mainEntryPattern.MatchString(name)
}

// MatchesFallback reports whether name matches the multi-volume filename
// fallback pattern used to admit members whose header isn't independently
// magic-valid.
func MatchesFallback(name string) bool {
	return FallbackPattern.MatchString(name)
}
