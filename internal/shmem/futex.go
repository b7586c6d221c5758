package shmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation codes. golang.org/x/sys/unix does not export
// these (only the FUTEX syscall number), so they are defined here.
const (
	FUTEX_WAIT = 0
	FUTEX_WAKE = 1
)

// The waiter/waker pairs below operate on 32-bit words that live inside a
// mapped arena, so FUTEX_PRIVATE_FLAG must not be used: waits and wakes
// cross process boundaries.

// futexWait blocks the calling thread while *addr == val. It returns on
// wake, on signal (EINTR), or immediately if the value has already changed
// (EAGAIN). Callers always re-check their predicate in a loop, so all of
// those outcomes are treated alike.
func futexWait(addr *uint32, val uint32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(FUTEX_WAIT),
		uintptr(val),
		0, 0, 0)
}

// futexWake wakes up to n threads blocked in futexWait on addr.
func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(FUTEX_WAKE),
		uintptr(n),
		0, 0, 0)
}
