//go:build !linux && !darwin

package signer

// memlockLimit is unavailable on this platform.
func memlockLimit() (soft, hard uint64) {
	return 0, 0
}
