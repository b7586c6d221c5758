package shmem

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyBound is returned by BindSink when another sink owns the node.
	ErrAlreadyBound = errors.New("shmem: node already has a bound sink")

	// ErrNodeClosed is returned by operations on a node that has reached the
	// END state.
	ErrNodeClosed = errors.New("shmem: node closed")

	// ErrNameCollision is returned by Construct when the object name is
	// already registered in the arena.
	ErrNameCollision = errors.New("shmem: name already constructed in arena")

	// ErrProtocolViolation reports misuse of the endpoint contracts: Post
	// without a preceding successful Wait, payload access outside the
	// sharable critical section, or observing a payload while the sink's
	// write intent is raised.
	ErrProtocolViolation = errors.New("shmem: protocol violation")
)

// ArenaError reports a failure to map, allocate from, or look up objects in
// a shared arena. Arena failures at bind or connect time are fatal to the
// calling component.
type ArenaError struct {
	Op    string // "open", "allocate", "construct", "find", ...
	Arena string
	Err   error
}

func (e *ArenaError) Error() string {
	return fmt.Sprintf("shmem: arena %q: %s: %v", e.Arena, e.Op, e.Err)
}

func (e *ArenaError) Unwrap() error { return e.Err }

func arenaErr(op, arena string, err error) error {
	return &ArenaError{Op: op, Arena: arena, Err: err}
}
