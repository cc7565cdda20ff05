// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"sync"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/fastcopy/pkg/rpc"
)

// DatanodeConnectionCache lazily builds and shares one Datanode handle per
// distinct node identity across every FileCopyJob and BlockCopyTask in an
// Orchestrator. Lookup is a two-phase, double-checked-locking pattern: an
// optimistic read under RLock, and on miss an exclusive section that
// re-checks before inserting, so concurrent first-users of the same node
// don't race to create duplicate handles.
//
// Unlike the transport-level rpc.ConnectionCache it builds handles on top
// of, DatanodeConnectionCache never evicts: a handle lives until CloseAll is
// called on the whole cache, at orchestrator shutdown.
type DatanodeConnectionCache struct {
	mu       sync.RWMutex
	handles  map[datanodeKey]Datanode
	transport *rpc.ConnectionCache
	newHandle func(*rpc.ConnectionCache, DatanodeRef) Datanode
}

// NewDatanodeConnectionCache creates a cache backed by the given transport
// connection cache (shared with the namenode handles). newHandle is
// injectable so tests can substitute fakes instead of RPCDatanode.
func NewDatanodeConnectionCache(transport *rpc.ConnectionCache, newHandle func(*rpc.ConnectionCache, DatanodeRef) Datanode) *DatanodeConnectionCache {
	if newHandle == nil {
		newHandle = func(t *rpc.ConnectionCache, ref DatanodeRef) Datanode {
			return NewRPCDatanode(t, ref)
		}
	}
	return &DatanodeConnectionCache{
		handles:   make(map[datanodeKey]Datanode),
		transport: transport,
		newHandle: newHandle,
	}
}

// Get returns the shared Datanode handle for node, creating it on first
// use.
func (c *DatanodeConnectionCache) Get(node DatanodeRef) Datanode {
	k := key(node)

	c.mu.RLock()
	if h, ok := c.handles[k]; ok {
		c.mu.RUnlock()
		return h
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[k]; ok {
		// Somebody else created it while we waited for the lock.
		return h
	}
	log.V(2).Infof("fastcopy: creating datanode handle for %s", node)
	h := c.newHandle(c.transport, node)
	c.handles[k] = h
	return h
}

// CloseAll closes every cached handle and empties the cache. Safe to call
// more than once.
func (c *DatanodeConnectionCache) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for addr, h := range c.handles {
		if err := h.Close(); err != nil {
			log.Warningf("fastcopy: error closing datanode handle %s: %s", addr, err)
		}
	}
	c.handles = make(map[datanodeKey]Datanode)
}

// Len reports the number of cached handles. Used by tests asserting the
// post-shutdown "cache is empty" invariant.
func (c *DatanodeConnectionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}
