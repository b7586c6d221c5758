package shmem

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutexMutualExclusion(t *testing.T) {
	var m Mutex
	var counter int
	var wg sync.WaitGroup

	const workers = 8
	const iters = 2000
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, workers*iters, counter)
}

func TestCondSignalWakesWaiter(t *testing.T) {
	var m Mutex
	var c Cond
	ready := false

	done := make(chan struct{})
	go func() {
		m.Lock()
		for !ready {
			c.Wait(&m)
		}
		m.Unlock()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	m.Lock()
	ready = true
	m.Unlock()
	c.Signal()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken")
	}
}

func TestCondBroadcastWakesAll(t *testing.T) {
	var m Mutex
	var c Cond
	released := false

	const waiters = 6
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			for !released {
				c.Wait(&m)
			}
			m.Unlock()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	m.Lock()
	released = true
	m.Unlock()
	c.Broadcast()

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("not all waiters woken by broadcast")
	}
}

func TestSharableMutexManyReaders(t *testing.T) {
	var m SharableMutex
	var concurrent, peak int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.LockSharable()
			n := atomic.AddInt32(&concurrent, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			m.UnlockSharable()
		}()
	}
	wg.Wait()
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "sharable holders must overlap")
}

func TestSharableMutexExcludesWriter(t *testing.T) {
	var m SharableMutex

	m.LockSharable()
	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("exclusive acquired while sharably held")
	case <-time.After(20 * time.Millisecond):
	}

	m.UnlockSharable()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("exclusive not acquired after sharable release")
	}
}

func TestSharableMutexExcludesReaders(t *testing.T) {
	var m SharableMutex

	m.Lock()
	var sawExclusive atomic.Bool
	done := make(chan struct{})
	go func() {
		m.LockSharable()
		assert.True(t, sawExclusive.Load(), "reader entered during exclusive hold")
		m.UnlockSharable()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	sawExclusive.Store(true)
	m.Unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader not admitted after exclusive release")
	}
}
