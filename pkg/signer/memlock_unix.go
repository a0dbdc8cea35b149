//go:build linux || darwin

package signer

import "golang.org/x/sys/unix"

// memlockLimit reports the soft and hard RLIMIT_MEMLOCK bounds in bytes.
// Zeros mean the limit could not be read.
func memlockLimit() (soft, hard uint64) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rl); err != nil {
		return 0, 0
	}
	return uint64(rl.Cur), uint64(rl.Max)
}
