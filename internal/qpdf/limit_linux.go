//go:build linux

package qpdf

import "golang.org/x/sys/unix"

// setMemoryLimit applies RLIMIT_AS to an already started child process.
func setMemoryLimit(pid int, limit uint64) error {
	rlim := unix.Rlimit{Cur: limit, Max: limit}
	return unix.Prlimit(pid, unix.RLIMIT_AS, &rlim, nil)
}
