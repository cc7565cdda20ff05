// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/westerndigitalcorporation/fastcopy/pkg/rpc"
)

type countingDatanode struct {
	closed int32
}

func (d *countingDatanode) CopyBlock(context.Context, NamespaceID, BlockID, NamespaceID, BlockID, DatanodeRef, bool) error {
	return nil
}

func (d *countingDatanode) Close() error {
	atomic.AddInt32(&d.closed, 1)
	return nil
}

func TestDatanodeConnectionCacheReusesHandle(t *testing.T) {
	var created int32
	cache := NewDatanodeConnectionCache(nil, func(*rpc.ConnectionCache, DatanodeRef) Datanode {
		atomic.AddInt32(&created, 1)
		return &countingDatanode{}
	})

	node := DatanodeRef{HostPort: "dn1:50010"}
	h1 := cache.Get(node)
	h2 := cache.Get(node)
	if h1 != h2 {
		t.Fatalf("expected the same handle to be returned for repeated Get of the same node")
	}
	if created != 1 {
		t.Fatalf("expected exactly 1 handle to be constructed, got %d", created)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 cached handle, got %d", cache.Len())
	}
}

func TestDatanodeConnectionCacheConcurrentGetCreatesOnce(t *testing.T) {
	var created int32
	cache := NewDatanodeConnectionCache(nil, func(*rpc.ConnectionCache, DatanodeRef) Datanode {
		atomic.AddInt32(&created, 1)
		return &countingDatanode{}
	})

	node := DatanodeRef{HostPort: "dn1:50010"}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Get(node)
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("double-checked locking should create exactly 1 handle under concurrent first-use, got %d", created)
	}
}

func TestDatanodeConnectionCacheDistinctNodesGetDistinctHandles(t *testing.T) {
	cache := NewDatanodeConnectionCache(nil, func(*rpc.ConnectionCache, DatanodeRef) Datanode {
		return &countingDatanode{}
	})
	a := cache.Get(DatanodeRef{HostPort: "a:1"})
	b := cache.Get(DatanodeRef{HostPort: "b:1"})
	if a == b {
		t.Fatalf("distinct datanodes must not share a handle")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached handles, got %d", cache.Len())
	}
}

func TestDatanodeConnectionCacheCloseAllClosesAndEmpties(t *testing.T) {
	var handles []*countingDatanode
	var mu sync.Mutex
	cache := NewDatanodeConnectionCache(nil, func(*rpc.ConnectionCache, DatanodeRef) Datanode {
		h := &countingDatanode{}
		mu.Lock()
		handles = append(handles, h)
		mu.Unlock()
		return h
	})

	cache.Get(DatanodeRef{HostPort: "a:1"})
	cache.Get(DatanodeRef{HostPort: "b:1"})
	cache.CloseAll()

	if cache.Len() != 0 {
		t.Fatalf("expected cache to be empty after CloseAll, got %d", cache.Len())
	}
	for _, h := range handles {
		if atomic.LoadInt32(&h.closed) != 1 {
			t.Fatalf("expected every handle to be closed exactly once")
		}
	}

	// CloseAll must be idempotent.
	cache.CloseAll()
}
