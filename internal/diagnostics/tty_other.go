//go:build !linux && !darwin

package diagnostics

import "io"

// isTerminal always reports false on platforms without a wired ioctl
// terminal check; color is simply disabled there.
func isTerminal(io.Writer) bool { return false }
