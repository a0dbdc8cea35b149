package secure

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
)

// EnvAllowUnlocked is the environment switch that downgrades a memory-locking
// failure from fatal to a warned, unpinned fallback.
const EnvAllowUnlocked = "COLDSIGN_ALLOW_UNLOCKED_MEMORY"

// ErrPinningUnavailable is returned by Acquire and FromBytes under
// PolicyStrict when the host cannot lock memory against swap.
var ErrPinningUnavailable = errors.New("memory locking unavailable")

// Policy selects what happens when memory cannot be pinned.
type Policy int

const (
	// PolicyStrict refuses to hold secrets in unpinned memory.
	PolicyStrict Policy = iota
	// PolicyPermissive proceeds with ordinary memory that is still wiped on
	// release. Opt-in only.
	PolicyPermissive
)

// PolicyFromEnv returns PolicyPermissive when COLDSIGN_ALLOW_UNLOCKED_MEMORY
// is set to "1" or "true", PolicyStrict otherwise.
func PolicyFromEnv() Policy {
	switch strings.ToLower(os.Getenv(EnvAllowUnlocked)) {
	case "1", "true":
		return PolicyPermissive
	}
	return PolicyStrict
}

// Buffer is one exclusively-owned memory region holding sensitive bytes.
// Exactly one of lb/plain is set: lb when the region is pinned, plain when
// the permissive policy fell back to an ordinary allocation.
type Buffer struct {
	lb    *memguard.LockedBuffer
	plain []byte

	mu       sync.Mutex
	released bool
}

var (
	probeOnce sync.Once
	probedPin bool
)

// CanPin reports whether this host can lock memory against swap. The probe
// runs once per process; the result never changes afterward.
func CanPin() bool {
	probeOnce.Do(func() {
		lb, err := newLocked(1)
		if err == nil {
			lb.Destroy()
			probedPin = true
		}
	})
	return probedPin
}

// newLocked allocates a pinned memguard buffer. memguard panics when its
// allocator cannot mlock, so the panic is converted back into an error here.
func newLocked(n int) (lb *memguard.LockedBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			lb = nil
			err = fmt.Errorf("%w: %v", ErrPinningUnavailable, r)
		}
	}()
	return memguard.NewBuffer(n), nil
}

// newLockedFromBytes moves src into a pinned buffer; memguard wipes src as
// part of the move. Panics are converted as in newLocked.
func newLockedFromBytes(src []byte) (lb *memguard.LockedBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			memguard.WipeBytes(src)
			lb = nil
			err = fmt.Errorf("%w: %v", ErrPinningUnavailable, r)
		}
	}()
	return memguard.NewBufferFromBytes(src), nil
}

// Acquire returns a new n-byte buffer. Under PolicyStrict a pinning failure
// is ErrPinningUnavailable; under PolicyPermissive the buffer falls back to
// unpinned memory.
func Acquire(n int, pol Policy) (*Buffer, error) {
	if n < 1 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", n)
	}
	if CanPin() {
		lb, err := newLocked(n)
		if err == nil {
			return &Buffer{lb: lb}, nil
		}
		// The probe succeeded earlier but this allocation still failed
		// (e.g. the memlock budget ran out); fall through to policy.
	}
	if pol != PolicyPermissive {
		return nil, ErrPinningUnavailable
	}
	return &Buffer{plain: make([]byte, n)}, nil
}

// FromBytes moves src into a new buffer and wipes src, so the caller's copy
// of the secret stops existing the moment this returns.
func FromBytes(src []byte, pol Policy) (*Buffer, error) {
	if len(src) == 0 {
		memguard.WipeBytes(src)
		return nil, errors.New("cannot build a buffer from empty bytes")
	}
	if CanPin() {
		lb, err := newLockedFromBytes(src)
		if err == nil {
			return &Buffer{lb: lb}, nil
		}
	}
	if pol != PolicyPermissive {
		memguard.WipeBytes(src)
		return nil, ErrPinningUnavailable
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	memguard.WipeBytes(src)
	return &Buffer{plain: dst}, nil
}

// WithBuffer runs fn with a freshly acquired buffer and releases it on every
// exit path, including a panic inside fn.
func WithBuffer(n int, pol Policy, fn func(*Buffer) error) error {
	buf, err := Acquire(n, pol)
	if err != nil {
		return err
	}
	defer buf.Release()
	return fn(buf)
}

// Bytes returns the region itself, not a copy. It is valid until Release and
// must not be retained past it. Returns nil once released.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	if b.lb != nil {
		return b.lb.Bytes()
	}
	return b.plain
}

// Len returns the region size, 0 once released.
func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// Pinned reports whether this particular buffer is locked against swap.
func (b *Buffer) Pinned() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lb != nil
}

// Release overwrites the region with zeros and unpins it. The wipe goes
// through memguard.WipeBytes, which the compiler cannot elide. Safe to call
// more than once and on nil.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	if b.lb != nil {
		b.lb.Destroy()
		b.lb = nil
	}
	if b.plain != nil {
		memguard.WipeBytes(b.plain)
		b.plain = nil
	}
	b.released = true
}
