package shmem

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Name derivation, shared by both endpoint kinds. Endpoint names are
// printable, non-empty strings; everything else is derived.
func arenaName(name string) string   { return name + "_sh_mem" }
func nodeName(name string) string    { return name + "_node" }
func payloadName(name string) string { return name + "_obj" }

// defaultArenaBytes sizes an arena to fit the node, one payload slot and
// ten percent slack. Both endpoint kinds derive the same default so that
// whichever process arrives first creates a region the other can map.
func defaultArenaBytes(payload int) int {
	need := arenaDataStart + int(unsafe.Sizeof(Node{})) + payload
	return roundUp(need+need/10, pageSize)
}

// Sink is the sole writer endpoint bound to a named node. A Sink is driven
// from a single goroutine; Interrupt and Close may additionally be called
// from a signal-watching goroutine.
type Sink[T any] struct {
	name  string
	arena *Arena
	node  *Node
	obj   *T

	stop      uint32
	closeOnce sync.Once
	closeErr  error
}

// BindSink opens or creates the named arena, constructs the node and the
// payload slot, and becomes the node's sole writer. arenaBytes of zero
// selects the default sizing. Fails with ErrAlreadyBound if another sink
// already owns the name.
func BindSink[T any](name string, arenaBytes int) (*Sink[T], error) {
	return bindSink[T](name, arenaBytes, nil)
}

// bindSink optionally runs a setup step between payload construction and
// the SINK_BOUND transition, so specializations can finish initializing
// the payload slot before sources are allowed to read it.
func bindSink[T any](name string, arenaBytes int, setup func(*Sink[T]) error) (*Sink[T], error) {
	var zero T
	if arenaBytes == 0 {
		arenaBytes = defaultArenaBytes(int(unsafe.Sizeof(zero)))
	}
	a, err := OpenOrCreate(arenaName(name), arenaBytes)
	if err != nil {
		return nil, err
	}
	node, err := FindOrConstruct[Node](a, nodeName(name))
	if err != nil {
		a.Close()
		return nil, err
	}
	if !node.claimSink() {
		a.Close()
		return nil, ErrAlreadyBound
	}
	obj, err := FindOrConstruct[T](a, payloadName(name))
	if err != nil {
		a.Close()
		return nil, err
	}
	s := &Sink[T]{name: name, arena: a, node: node, obj: obj}
	if setup != nil {
		if err := setup(s); err != nil {
			node.closeNode()
			a.Close()
			return nil, err
		}
	}
	node.setState(StateSinkBound)
	return s, nil
}

// Name returns the endpoint name.
func (s *Sink[T]) Name() string { return s.name }

// SampleNumber returns the number of samples published so far.
func (s *Sink[T]) SampleNumber() uint64 { return atomic.LoadUint64(&s.node.sampleNumber) }

// SourceCount returns the number of currently attached sources.
func (s *Sink[T]) SourceCount() int { return s.node.SourceRefCount() }

// Push runs one publication cycle: wait until every reader of the previous
// sample has posted, mutate the payload in place under the exclusive lock,
// then publish and wake all sources. Push returns ErrNodeClosed once the
// node has ended or the sink was interrupted. The payload bytes passed to
// mutate are stable until the next Push.
func (s *Sink[T]) Push(mutate func(*T)) error {
	if s.node == nil {
		return ErrNodeClosed
	}
	if err := s.node.waitWritable(&s.stop); err != nil {
		return err
	}
	s.node.rw.Lock()
	atomic.StoreUint32(&s.node.writeIntent, 1)
	mutate(s.obj)
	atomic.StoreUint32(&s.node.writeIntent, 0)
	s.node.rw.Unlock()
	s.node.publish()
	return nil
}

// Interrupt unblocks a Push in progress, which then returns ErrNodeClosed.
// Safe to call from another goroutine.
func (s *Sink[T]) Interrupt() {
	atomic.StoreUint32(&s.stop, 1)
	if s.node != nil {
		s.node.cond.Broadcast()
	}
}

// Close transitions the node to END, wakes every blocked source, and
// detaches from the arena. Idempotent; also the path taken on shutdown
// signals.
func (s *Sink[T]) Close() error {
	s.closeOnce.Do(func() {
		if s.node == nil {
			return
		}
		s.node.closeNode()
		s.closeErr = s.arena.Close()
		s.node, s.obj = nil, nil
	})
	return s.closeErr
}
