// Package secure owns the memory regions that hold raw key material.
//
// Every secret byte the signer touches lives inside a Buffer: a region that
// is pinned against swap (via memguard's locked allocator) and overwritten
// with zeros before it is returned to the OS. Buffers are scoped to a single
// operation and released on every exit path:
//
//	buf, err := secure.Acquire(32, pol)
//	if err != nil {
//	    // ErrPinningUnavailable under the strict policy
//	}
//	defer buf.Release() // wipes, then unpins; idempotent
//
// or, equivalently, with the scoped form that releases even on panic:
//
//	err := secure.WithBuffer(32, pol, func(buf *secure.Buffer) error {
//	    // buf.Bytes() is valid only inside this function
//	    return nil
//	})
//
// # Pinning policy
//
// Whether the host can lock memory is probed exactly once per process
// (CanPin). When locking is unavailable — typically RLIMIT_MEMLOCK on
// Linux — behavior depends on the policy:
//
//   - PolicyStrict (default): Acquire fails with ErrPinningUnavailable.
//   - PolicyPermissive: Acquire falls back to an ordinary allocation that is
//     still wiped on Release. Callers surface a warning; the data may be
//     swapped to disk in the meantime.
//
// PolicyPermissive is an explicit opt-in through the
// COLDSIGN_ALLOW_UNLOCKED_MEMORY environment variable (PolicyFromEnv).
//
// The probe result is the only process-wide state in this package and it is
// immutable once set.
//
// # What this protects against
//
// Pinned buffers keep plaintext out of swap and core dumps and guarantee
// zeroization on release. They do not defend against a root-privileged
// attacker reading live process memory, or hardware-level attacks.
package secure
