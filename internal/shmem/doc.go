// Package shmem is the shared-memory dataflow substrate that moves typed
// samples between pipeline processes.
//
// A producing process binds a Sink to a named node; any number of consuming
// processes connect Sources to the same name. All coordination state lives
// in a named, memory-mapped arena, so the sink and its sources may be (and
// normally are) separate processes. Each publication is a rendezvous: the
// sink mutates the shared payload slot in place, publishes a new write
// number, and then waits until every attached source has observed the sample
// and posted before it may reuse the slot. There is exactly one in-flight
// sample per node.
//
// Payload types must have a fixed, pointer-free memory layout: every byte of
// the value is shared verbatim with other processes, so Go pointers, slices,
// maps and strings are forbidden. Frame payloads carry their pixel buffer
// out of band, referenced by an arena Handle (see SharedFrame).
//
// Synchronization is built on Linux futexes: a process-shared mutex,
// condition variable and sharable (reader/writer) mutex whose entire state
// is stored in arena words. The substrate therefore runs on Linux only.
package shmem
