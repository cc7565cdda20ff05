// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"sync"
)

// FileStatus is the observable block-completion counter for one destination
// file. BlocksDone is bumped exactly once per block, the first time that
// block's BlockStatus reaches the Good verdict. It is a point-in-time copy
// returned to callers of FileStatusRegistry.Get; the registry itself owns
// the mutable counter.
type FileStatus struct {
	Path        string
	TotalBlocks int
	BlocksDone  int
}

// FileStatusRegistry maps destination path to its completion counter.
// Entries are created lazily on first completed block for a path and
// survive until orchestrator teardown, since this registry is purely a
// status-reporting surface. Waiters block on a single shared condition
// variable rather than polling, woken on every completed block across
// every file; each waiter re-checks only its own path's counter.
type FileStatusRegistry struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*FileStatus
}

// NewFileStatusRegistry creates an empty registry.
func NewFileStatusRegistry() *FileStatusRegistry {
	r := &FileStatusRegistry{entries: make(map[string]*FileStatus)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Get looks up the observable status for a destination path. Returns
// nil, false if no block has ever completed for that path yet.
func (r *FileStatusRegistry) Get(path string) (*FileStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs, ok := r.entries[path]
	if !ok {
		return nil, false
	}
	copy := *fs
	return &copy, true
}

// MarkBlockDone bumps the completion counter for path by one, creating the
// entry on first call for that path, and wakes any goroutine waiting on
// this registry.
func (r *FileStatusRegistry) MarkBlockDone(path string, totalBlocks int) {
	r.mu.Lock()
	fs, ok := r.entries[path]
	if !ok {
		fs = &FileStatus{Path: path, TotalBlocks: totalBlocks}
		r.entries[path] = fs
	}
	fs.BlocksDone++
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Wake rouses every goroutine blocked in Wait without changing any
// counter, so a waiter re-checks its abort function promptly. Used when a
// block reaches a terminal Bad verdict: that outcome bumps no completion
// counter, but a waiter's sticky error still needs to be noticed right
// away rather than only at the next unrelated MarkBlockDone.
func (r *FileStatusRegistry) Wake() {
	// Taking the lock orders this broadcast after any waiter's abort check,
	// so the wakeup cannot fall between that check and cond.Wait.
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// Wait blocks until the completion counter for path reaches target (an
// absent entry counts as 0, matching a file with no blocks done yet), the
// context is cancelled, or abort returns a non-nil error. abort is checked
// on every wakeup so a sticky job-level error can interrupt the wait
// promptly instead of only at a polling interval.
func (r *FileStatusRegistry) Wait(ctx context.Context, path string, target int, abort func() error) error {
	if target == 0 {
		return abort()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.Wake()
		case <-done:
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		blocksDone := 0
		if fs, ok := r.entries[path]; ok {
			blocksDone = fs.BlocksDone
		}
		if blocksDone >= target {
			return abort()
		}
		if err := abort(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.cond.Wait()
	}
}
