//go:build linux

package diagnostics

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// isTerminal reports whether out is an interactive terminal, gating
// ANSI color in the caret-diagnostic header (spec §7 "colorized
// header"). Only *os.File writers can plausibly be a TTY.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}
