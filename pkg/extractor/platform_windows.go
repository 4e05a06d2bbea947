//go:build windows

package extractor

import (
	"os/exec"
	"syscall"
)

// createNoWindow suppresses the console window Windows would otherwise pop
// up for every subprocess invocation.
const createNoWindow = 0x08000000

// configurePlatform suppresses the console window for the extractor
// subprocess on Windows.
func configurePlatform(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
