package shmem

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// WaitStatus is the outcome of a Source.Wait call.
type WaitStatus int

const (
	// Ready: a new sample is observable; the caller holds the sharable lock
	// and must call Post exactly once.
	Ready WaitStatus = iota
	// EndOfStream: the node reached END (or the wait was interrupted); no
	// further samples will arrive. Not an error.
	EndOfStream
)

// Source is a reader endpoint attached to a named node. Many sources may
// attach to one node; each sees every sample published after it attached.
// A Source is driven from a single goroutine; Interrupt and Disconnect may
// additionally be called from a signal-watching goroutine once the driving
// goroutine has stopped.
type Source[T any] struct {
	name  string
	arena *Arena
	node  *Node
	obj   *T

	lastSeen uint64
	owesPost bool
	eos      bool
	stop     uint32

	discOnce sync.Once
	discErr  error
}

// ConnectSource attaches to the named node, creating the arena and node if
// no other process has touched the name yet (sources may start before the
// sink). The returned source only observes samples published after it
// attached.
func ConnectSource[T any](name string) (*Source[T], error) {
	var zero T
	a, err := OpenOrCreate(arenaName(name), defaultArenaBytes(int(unsafe.Sizeof(zero))))
	if err != nil {
		return nil, err
	}
	return connect[T](name, a)
}

// ConnectSourceExisting attaches to the named node, failing immediately if
// no process has created it yet.
func ConnectSourceExisting[T any](name string) (*Source[T], error) {
	a, err := OpenExisting(arenaName(name))
	if err != nil {
		return nil, err
	}
	return connect[T](name, a)
}

func connect[T any](name string, a *Arena) (*Source[T], error) {
	node, err := FindOrConstruct[Node](a, nodeName(name))
	if err != nil {
		a.Close()
		return nil, err
	}
	obj, err := FindOrConstruct[T](a, payloadName(name))
	if err != nil {
		a.Close()
		return nil, err
	}
	s := &Source[T]{name: name, arena: a, node: node, obj: obj}
	s.lastSeen = node.attachSource()
	return s, nil
}

// Name returns the endpoint name.
func (s *Source[T]) Name() string { return s.name }

// NodeState reports the node's current lifecycle state.
func (s *Source[T]) NodeState() NodeState { return s.node.State() }

// SampleNumber returns the write number of the most recently observed
// sample.
func (s *Source[T]) SampleNumber() uint64 { return s.lastSeen }

// Wait blocks until the sink publishes a sample this source has not yet
// seen, then acquires the sharable lock and returns Ready. It returns
// EndOfStream once the node has ended or the wait was interrupted; both
// are ordinary shutdown, not errors. After Ready the caller must observe
// or copy the payload and then call Post exactly once.
func (s *Source[T]) Wait() (WaitStatus, error) {
	if s.node == nil || s.eos {
		return EndOfStream, nil
	}
	if s.owesPost {
		return Ready, ErrProtocolViolation
	}
	w, ok := s.node.waitSample(s.lastSeen, &s.stop)
	if !ok {
		s.eos = true
		return EndOfStream, nil
	}
	s.lastSeen = w
	s.node.rw.LockSharable()
	if atomic.LoadUint32(&s.node.writeIntent) != 0 {
		s.node.rw.UnlockSharable()
		return EndOfStream, ErrProtocolViolation
	}
	s.owesPost = true
	return Ready, nil
}

// Object returns a pointer to the shared payload slot. Valid only between
// a Ready Wait and the matching Post.
func (s *Source[T]) Object() (*T, error) {
	if !s.owesPost {
		return nil, ErrProtocolViolation
	}
	return s.obj, nil
}

// Copy clones the shared payload. Valid only between a Ready Wait and the
// matching Post; the copy remains usable afterwards.
func (s *Source[T]) Copy() (T, error) {
	var v T
	if !s.owesPost {
		return v, ErrProtocolViolation
	}
	v = *s.obj
	return v, nil
}

// Post releases the sharable lock and decrements the read barrier; the last
// source to post wakes the sink. Must be called exactly once per Ready
// Wait.
func (s *Source[T]) Post() error {
	if !s.owesPost {
		return ErrProtocolViolation
	}
	s.node.rw.UnlockSharable()
	s.owesPost = false
	s.node.post()
	return nil
}

// Interrupt unblocks a Wait in progress, which then returns EndOfStream.
// Safe to call from another goroutine.
func (s *Source[T]) Interrupt() {
	atomic.StoreUint32(&s.stop, 1)
	if s.node != nil {
		s.node.cond.Broadcast()
	}
}

// Disconnect detaches from the node. If the source still owed a release
// for the in-flight sample the latched barrier is adjusted so the sink
// does not wait forever on a departed reader. Idempotent.
func (s *Source[T]) Disconnect() error {
	s.discOnce.Do(func() {
		if s.node == nil {
			return
		}
		owed := s.owesPost
		if owed {
			s.node.rw.UnlockSharable()
			s.owesPost = false
		}
		s.node.detachSource(s.lastSeen, owed)
		s.discErr = s.arena.Close()
		s.node, s.obj = nil, nil
	})
	return s.discErr
}
