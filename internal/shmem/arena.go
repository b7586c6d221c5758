package shmem

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Handle is an offset-based token referring to a byte region of an arena.
// Unlike a raw address, a Handle is valid in every process that has mapped
// the same arena. The zero Handle refers to nothing: allocations never
// start at offset zero because the arena header lives there.
type Handle uint64

// NilHandle is the zero, never-allocated Handle.
const NilHandle Handle = 0

const (
	arenaMagic uint64 = 0x74706172656e6131 // "tparena1"

	arenaDir      = "/dev/shm"
	arenaMaxNames = 64
	arenaNameLen  = 48
	arenaAlign    = 64

	pageSize = 4096

	initEmpty = 0
	initBusy  = 1
	initReady = 2
)

type nameEntry struct {
	used    uint32
	nameLen uint32
	off     uint64
	size    uint64
	name    [arenaNameLen]byte
}

// arenaHeader sits at offset zero of every mapped region. All fields after
// the creation handshake are mutated with atomics or under tableMu, so the
// header is safe to touch from any participating process.
type arenaHeader struct {
	initState uint32
	_         uint32
	magic     uint64
	size      uint64
	refs      uint32
	_         uint32
	cursor    uint64
	tableMu   Mutex
	_         uint32
	names     [arenaMaxNames]nameEntry
}

var arenaDataStart = (int(unsafe.Sizeof(arenaHeader{})) + arenaAlign - 1) &^ (arenaAlign - 1)

// Arena is a named, fixed-size, memory-mapped region shared by cooperating
// processes. It supports construction and lookup of named objects, raw
// allocation, and Handle<->address translation. The backing file is
// unlinked when the last participant closes.
type Arena struct {
	name string
	path string
	mem  []byte
	hdr  *arenaHeader
}

func validArenaName(name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("invalid character in name %q", name)
	}
	if len(name) > arenaNameLen {
		return fmt.Errorf("name %q longer than %d bytes", name, arenaNameLen)
	}
	return nil
}

func roundUp(n, to int) int { return (n + to - 1) &^ (to - 1) }

// OpenOrCreate maps the named arena, creating and initializing it if this
// is the first participating process. Opening an existing arena with a
// different size fails: the region is fixed at creation.
func OpenOrCreate(name string, size int) (*Arena, error) {
	if err := validArenaName(name); err != nil {
		return nil, arenaErr("open", name, err)
	}
	if min := arenaDataStart + pageSize; size < min {
		size = min
	}
	size = roundUp(size, pageSize)

	path := arenaDir + "/" + name
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0o600)
	if err != nil {
		return nil, arenaErr("open", name, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, arenaErr("open", name, err)
	}
	if st.Size == 0 {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			return nil, arenaErr("open", name, err)
		}
	} else if st.Size != int64(size) {
		unix.Close(fd)
		return nil, arenaErr("open", name,
			fmt.Errorf("exists with incompatible size %d (want %d)", st.Size, size))
	}

	return mapArena(name, path, fd, size)
}

// OpenExisting maps an arena that must already exist. Used by endpoints
// that choose fail-immediately semantics over create-and-wait.
func OpenExisting(name string) (*Arena, error) {
	if err := validArenaName(name); err != nil {
		return nil, arenaErr("open", name, err)
	}
	path := arenaDir + "/" + name
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, arenaErr("open", name, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, arenaErr("open", name, err)
	}
	if st.Size == 0 {
		unix.Close(fd)
		return nil, arenaErr("open", name, errors.New("arena not yet initialized"))
	}
	return mapArena(name, path, fd, int(st.Size))
}

func mapArena(name, path string, fd, size int) (*Arena, error) {
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	unix.Close(fd)
	if err != nil {
		return nil, arenaErr("mmap", name, err)
	}

	hdr := (*arenaHeader)(unsafe.Pointer(&mem[0]))
	if atomic.CompareAndSwapUint32(&hdr.initState, initEmpty, initBusy) {
		hdr.magic = arenaMagic
		hdr.size = uint64(size)
		atomic.StoreUint64(&hdr.cursor, uint64(arenaDataStart))
		atomic.StoreUint32(&hdr.initState, initReady)
		futexWake(&hdr.initState, wakeAll)
	} else {
		for atomic.LoadUint32(&hdr.initState) != initReady {
			futexWait(&hdr.initState, initBusy)
		}
		if hdr.magic != arenaMagic {
			unix.Munmap(mem)
			return nil, arenaErr("open", name, errors.New("region is not a trackpipe arena"))
		}
		if hdr.size != uint64(size) {
			unix.Munmap(mem)
			return nil, arenaErr("open", name,
				fmt.Errorf("exists with incompatible size %d (want %d)", hdr.size, size))
		}
	}
	atomic.AddUint32(&hdr.refs, 1)

	return &Arena{name: name, path: path, mem: mem, hdr: hdr}, nil
}

// Name returns the arena name.
func (a *Arena) Name() string { return a.name }

// Size returns the mapped region size in bytes.
func (a *Arena) Size() int { return len(a.mem) }

// Refs returns the current participant count.
func (a *Arena) Refs() int { return int(atomic.LoadUint32(&a.hdr.refs)) }

// Close detaches from the arena. The last participant to detach unlinks the
// backing file. Close is idempotent.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	if atomic.AddUint32(&a.hdr.refs, ^uint32(0)) == 0 {
		unix.Unlink(a.path)
	}
	err := unix.Munmap(a.mem)
	a.mem, a.hdr = nil, nil
	return err
}

// Allocate reserves n bytes with the given alignment and returns the
// allocation's Handle. The arena is a bump allocator: raw allocations are
// never reclaimed before the arena itself is.
func (a *Arena) Allocate(n, align int) (Handle, error) {
	if n <= 0 {
		return NilHandle, arenaErr("allocate", a.name, fmt.Errorf("invalid size %d", n))
	}
	if align <= 0 {
		align = 8
	}
	for {
		cur := atomic.LoadUint64(&a.hdr.cursor)
		off := uint64(roundUp(int(cur), align))
		end := off + uint64(n)
		if end > a.hdr.size {
			return NilHandle, arenaErr("allocate", a.name,
				fmt.Errorf("out of space: need %d bytes, %d free", n, a.hdr.size-cur))
		}
		if atomic.CompareAndSwapUint64(&a.hdr.cursor, cur, end) {
			return Handle(off), nil
		}
	}
}

// ToAddress converts a Handle to an address valid in this process only.
func (a *Arena) ToAddress(h Handle) unsafe.Pointer {
	if h == NilHandle || uint64(h) >= uint64(len(a.mem)) {
		return nil
	}
	return unsafe.Pointer(&a.mem[h])
}

// ToHandle converts an address inside the mapped region back to its
// portable Handle.
func (a *Arena) ToHandle(p unsafe.Pointer) Handle {
	base := uintptr(unsafe.Pointer(&a.mem[0]))
	off := uintptr(p) - base
	if off >= uintptr(len(a.mem)) {
		return NilHandle
	}
	return Handle(off)
}

// Bytes returns the n-byte slice the Handle refers to. The slice aliases
// shared memory: writes are visible to every participant.
func (a *Arena) Bytes(h Handle, n int) ([]byte, error) {
	if h == NilHandle || uint64(h)+uint64(n) > uint64(len(a.mem)) {
		return nil, arenaErr("bytes", a.name, fmt.Errorf("handle %#x +%d out of range", h, n))
	}
	return a.mem[h : uint64(h)+uint64(n) : uint64(h)+uint64(n)], nil
}

// lookupLocked scans the name table. Caller holds tableMu.
func (a *Arena) lookupLocked(name string) *nameEntry {
	for i := range a.hdr.names {
		e := &a.hdr.names[i]
		if e.used != 0 && int(e.nameLen) == len(name) &&
			string(e.name[:e.nameLen]) == name {
			return e
		}
	}
	return nil
}

func (a *Arena) constructLocked(name string, size, align int) (Handle, error) {
	var free *nameEntry
	for i := range a.hdr.names {
		if a.hdr.names[i].used == 0 {
			free = &a.hdr.names[i]
			break
		}
	}
	if free == nil {
		return NilHandle, arenaErr("construct", a.name, errors.New("name table full"))
	}
	h, err := a.Allocate(size, align)
	if err != nil {
		return NilHandle, err
	}
	b, err := a.Bytes(h, size)
	if err != nil {
		return NilHandle, err
	}
	clear(b)
	free.nameLen = uint32(copy(free.name[:], name))
	free.off = uint64(h)
	free.size = uint64(size)
	free.used = 1
	return h, nil
}

// Remove unregisters a named object. The underlying bytes are not
// reclaimed. Returns false if the name was not registered.
func (a *Arena) Remove(name string) bool {
	a.hdr.tableMu.Lock()
	defer a.hdr.tableMu.Unlock()
	e := a.lookupLocked(name)
	if e == nil {
		return false
	}
	*e = nameEntry{}
	return true
}

// Construct allocates and zero-initializes a named object of type T.
// T must have a fixed, pointer-free layout. Fails with ErrNameCollision if
// the name is already registered.
func Construct[T any](a *Arena, name string) (*T, error) {
	if err := validArenaName(name); err != nil {
		return nil, arenaErr("construct", a.name, err)
	}
	var zero T
	a.hdr.tableMu.Lock()
	defer a.hdr.tableMu.Unlock()
	if a.lookupLocked(name) != nil {
		return nil, arenaErr("construct", a.name, fmt.Errorf("%q: %w", name, ErrNameCollision))
	}
	h, err := a.constructLocked(name, int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return (*T)(a.ToAddress(h)), nil
}

// Find locates a named object of type T. A registered name whose recorded
// size does not match sizeof(T) is reported as absent.
func Find[T any](a *Arena, name string) (*T, bool) {
	var zero T
	a.hdr.tableMu.Lock()
	defer a.hdr.tableMu.Unlock()
	e := a.lookupLocked(name)
	if e == nil || e.size != uint64(unsafe.Sizeof(zero)) {
		return nil, false
	}
	return (*T)(a.ToAddress(Handle(e.off))), true
}

// FindOrConstruct returns the named object, constructing it if absent. The
// first process to touch a node uses this to create it; later arrivals find
// the existing object.
func FindOrConstruct[T any](a *Arena, name string) (*T, error) {
	if err := validArenaName(name); err != nil {
		return nil, arenaErr("construct", a.name, err)
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	a.hdr.tableMu.Lock()
	defer a.hdr.tableMu.Unlock()
	if e := a.lookupLocked(name); e != nil {
		if e.size != uint64(size) {
			return nil, arenaErr("find", a.name,
				fmt.Errorf("%q: size mismatch: registered %d, want %d", name, e.size, size))
		}
		return (*T)(a.ToAddress(Handle(e.off))), nil
	}
	h, err := a.constructLocked(name, size, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return (*T)(a.ToAddress(h)), nil
}
