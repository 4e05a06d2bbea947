//go:build !windows

package extractor

import "os/exec"

// configurePlatform is a no-op on non-Windows platforms; there is no
// console window to suppress.
func configurePlatform(*exec.Cmd) {}
