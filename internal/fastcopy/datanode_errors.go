// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import "sync"

// DatanodeErrorRegistry is a process-wide, monotonically non-decreasing
// per-datanode error counter. A BlockCopyTask consults Exceeds before
// issuing its RPC and calls Increment after a classified failure. The
// registry is never time-decayed within a run: once a node crosses the
// threshold it stays quarantined for the lifetime of the Orchestrator.
type DatanodeErrorRegistry struct {
	mu     sync.Mutex
	errors map[datanodeKey]int
	max    int
}

// NewDatanodeErrorRegistry creates a registry that quarantines a node once
// its error count exceeds max.
func NewDatanodeErrorRegistry(max int) *DatanodeErrorRegistry {
	return &DatanodeErrorRegistry{errors: make(map[datanodeKey]int), max: max}
}

// Increment records one more failure attributed to node.
func (r *DatanodeErrorRegistry) Increment(node DatanodeRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[key(node)]++
}

// Count returns the current error count for node.
func (r *DatanodeErrorRegistry) Count(node DatanodeRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[key(node)]
}

// Exceeds reports whether node's error count is strictly greater than the
// configured threshold, meaning it should be quarantined.
func (r *DatanodeErrorRegistry) Exceeds(node DatanodeRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[key(node)] > r.max
}
