// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent set of goroutines that run the
// per-thread slices of a convolution. A Pool is created once and reused
// across calls, so a network's many convolutions do not pay goroutine spawn
// and channel allocation costs each time.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	for _, layer := range layers {
//	    pool.RunThreads(pool.NumWorkers(), func(threadID int) {
//	        layer.run(threadID, pool.NumWorkers())
//	    })
//	}
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. Workers are spawned at creation and
// live until Close.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	threadID int
	fn       func(threadID int)
	barrier  *sync.WaitGroup
}

// New creates a pool with numWorkers workers. If numWorkers <= 0 it uses
// GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn(item.threadID)
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts the pool down once pending work completes. It is safe to call
// more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// RunThreads calls fn(threadID) once for every threadID in [0, numThreads)
// and blocks until all calls return. Calls run concurrently on the pool's
// workers; numThreads may exceed NumWorkers, in which case threads queue.
//
// Thread ids are fixed and each appears exactly once, which is what static
// partitioning (kernels.Partition1D) requires. A closed pool runs the
// threads sequentially on the caller's goroutine.
func (p *Pool) RunThreads(numThreads int, fn func(threadID int)) {
	if numThreads <= 0 {
		return
	}
	if numThreads == 1 || p.closed.Load() {
		for tid := range numThreads {
			fn(tid)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(numThreads)
	for tid := range numThreads {
		p.workC <- workItem{threadID: tid, fn: fn, barrier: &wg}
	}
	wg.Wait()
}

// ParallelFor splits [0, n) into one contiguous range per worker and runs
// fn on each. It blocks until all work completes.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := min(p.numWorkers, n)
	chunk := (n + workers - 1) / workers
	p.RunThreads(workers, func(tid int) {
		start := tid * chunk
		if start >= n {
			return
		}
		fn(start, min(start+chunk, n))
	})
}
