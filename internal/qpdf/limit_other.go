//go:build !linux

package qpdf

// setMemoryLimit is a no-op off Linux, where per-process limits cannot be
// applied to an already running child.
func setMemoryLimit(pid int, limit uint64) error {
	return nil
}
