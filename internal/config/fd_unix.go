//go:build unix

package config

import "syscall"

// fdLimit returns the soft limit on open file descriptors, when readable.
func fdLimit() (int, bool) {
	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlim); err != nil {
		return 0, false
	}
	return int(rlim.Cur), true
}
