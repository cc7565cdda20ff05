// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import "sync"

// Verdict is the terminal (or non-terminal) state of a destination block's
// replica tally.
type Verdict int

const (
	// Indeterminate means neither threshold has been crossed yet.
	Indeterminate Verdict = iota
	// Good means enough replicas succeeded to consider the block durable.
	Good
	// Bad means every replica failed; the block can never become durable.
	Bad
)

// blockStatus is the per-block replica tally. totalReplicas is
// min(len(srcLocs), len(dstLocs)) for the block, fixed at creation.
//
// Invariant: 0 <= good <= total, 0 <= bad <= total, good+bad is
// monotonically non-decreasing. Once a verdict is reached the entry is
// removed from its owning registry and never updated again.
type blockStatus struct {
	total int
	good  int
	bad   int
}

// BlockStatusRegistry tracks the in-flight replica tally for every
// destination block currently being copied. A block leaves the registry
// exactly once, the moment it reaches a terminal verdict, so that the
// "bump FileStatus exactly once" invariant holds regardless of how many
// BlockCopyTask goroutines are racing to report outcomes for it.
type BlockStatusRegistry struct {
	mu             sync.Mutex
	entries        map[BlockID]*blockStatus
	minReplication int
}

// NewBlockStatusRegistry creates an empty registry. minReplication is the
// good-replica threshold used to decide the GOOD verdict.
func NewBlockStatusRegistry(minReplication int) *BlockStatusRegistry {
	return &BlockStatusRegistry{
		entries:        make(map[BlockID]*blockStatus),
		minReplication: minReplication,
	}
}

// Register creates a fresh tally for a destination block with the given
// total replica count. Called once per block, before any BlockCopyTask for
// it is dispatched.
func (r *BlockStatusRegistry) Register(block BlockID, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[block] = &blockStatus{total: total}
}

// Record applies one replica outcome to the block's tally and returns the
// verdict reached, if any. It returns Indeterminate if the block is not
// registered (already resolved, or never registered) or if the tally has
// not yet crossed a threshold; in both cases the caller must take no
// further action on BlockStatus or FileStatus for this outcome.
func (r *BlockStatusRegistry) Record(block BlockID, success bool) Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.entries[block]
	if !ok {
		return Indeterminate
	}
	if success {
		st.good++
		if st.good >= r.minReplication {
			delete(r.entries, block)
			return Good
		}
	} else {
		st.bad++
		if st.bad >= st.total {
			delete(r.entries, block)
			return Bad
		}
	}
	return Indeterminate
}

// Len reports the number of blocks currently in flight. Used by tests.
func (r *BlockStatusRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
