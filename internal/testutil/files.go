package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ZipMagic, SevenZMagic, and RarMagic are the leading bytes pkg/probe
// recognizes. Fixtures that need to pass the magic-byte check write one of
// these as their content; fixtures that rely on the filename fallback
// (volume 2+ of a multi-part set) can use arbitrary bytes instead.
var (
	ZipMagic    = []byte{0x50, 0x4B, 0x03, 0x04}
	SevenZMagic = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	RarMagic    = []byte{0x52, 0x61, 0x72, 0x21}
)

func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func CreateFile(t *testing.T, path, content string) {
	t.Helper()
	createFileBytes(t, path, []byte(content), 0o644, false, time.Time{})
}

func CreateFileWithModTime(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	createFileBytes(t, path, []byte(content), 0o600, true, modTime)
}

func CreateFileBytesWithModTime(t *testing.T, path string, content []byte, modTime time.Time) {
	t.Helper()
	createFileBytes(t, path, content, 0o600, true, modTime)
}

// CreateRarVolumeSet writes a ".partNN.rar" multi-volume set under dir, one
// file per volume: base+".part01.rar" carries the RAR magic bytes (the
// member the grouping scanner must pick as the main entry); the rest carry
// arbitrary non-magic bytes and rely on the filename fallback pattern.
func CreateRarVolumeSet(t *testing.T, dir, base string, volumes int) []string {
	t.Helper()

	paths := make([]string, 0, volumes)
	for i := 1; i <= volumes; i++ {
		name := fmt.Sprintf("%s.part%02d.rar", base, i)
		path := filepath.Join(dir, name)

		content := []byte("not a volume header")
		if i == 1 {
			content = RarMagic
		}

		CreateFileBytesWithModTime(t, path, content, time.Time{})
		paths = append(paths, path)
	}

	return paths
}

// CreateNumberedVolumeSet writes a ".<kind>.NNN" numbered multi-volume set
// (the 7z/zip split-archive convention) under dir. Volume 001 carries the
// matching magic bytes; later volumes carry arbitrary bytes.
func CreateNumberedVolumeSet(t *testing.T, dir, base, kind string, volumes int) []string {
	t.Helper()

	magic := ZipMagic
	if kind == "7z" {
		magic = SevenZMagic
	}

	paths := make([]string, 0, volumes)
	for i := 1; i <= volumes; i++ {
		name := fmt.Sprintf("%s.%s.%03d", base, kind, i)
		path := filepath.Join(dir, name)

		content := []byte("not a volume header")
		if i == 1 {
			content = magic
		}

		CreateFileBytesWithModTime(t, path, content, time.Time{})
		paths = append(paths, path)
	}

	return paths
}

// WriteFakeExtractorBinary writes a POSIX shell script standing in for the
// external archiver subprocess (§6): script's body is the literal shell
// script content, e.g. "#!/bin/sh\nexit 0\n". Tests exercising password
// trial or exit-code classification write a script that branches on its
// arguments instead of always succeeding. The test is skipped on Windows,
// since the fixture is a shell script.
func WriteFakeExtractorBinary(t *testing.T, script string) (dir, binaryName string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake extractor binary fixture is a POSIX shell script")
	}

	dir = t.TempDir()
	binaryName = "fake-extractor"
	path := filepath.Join(dir, binaryName)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return dir, binaryName
}

func createFileBytes(t *testing.T, path string, content []byte, mode os.FileMode, setModTime bool, modTime time.Time) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(t, err)

	err = os.WriteFile(path, content, mode)
	require.NoError(t, err)

	if !setModTime {
		return
	}

	err = os.Chtimes(path, modTime, modTime)
	require.NoError(t, err)
}
