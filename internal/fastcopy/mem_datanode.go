// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"errors"
	"sync"
)

// ErrMemDatanodeInjected is returned by MemDatanode when a call was
// scripted to fail.
var ErrMemDatanodeInjected = errors.New("fastcopy: injected datanode failure")

// MemDatanode is an in-memory fake of Datanode for tests. FailFor scripts a
// number of initial CopyBlock calls to fail before succeeding, keyed by the
// destination datanode's HostPort, so a scenario can make exactly one
// replica of a block fail while its siblings succeed.
type MemDatanode struct {
	mu       sync.Mutex
	FailFor  map[string]int
	calls    []CopyBlockReq
}

// NewMemDatanode creates a fake with no scripted failures.
func NewMemDatanode() *MemDatanode {
	return &MemDatanode{FailFor: make(map[string]int)}
}

// CopyBlock implements Datanode. label is the dst datanode's HostPort,
// since that's what distinguishes otherwise-identical calls for the same
// block across its replicas in the test scenarios.
func (d *MemDatanode) CopyBlock(ctx context.Context, srcNS NamespaceID, srcBlock BlockID, dstNS NamespaceID, dstBlock BlockID, dst DatanodeRef, federated bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, CopyBlockReq{
		SrcNamespaceID: srcNS,
		SrcBlock:       srcBlock,
		DstNamespaceID: dstNS,
		DstBlock:       dstBlock,
		DstDatanode:    dst,
		Federated:      federated,
	})

	if n := d.FailFor[dst.HostPort]; n > 0 {
		d.FailFor[dst.HostPort] = n - 1
		return ErrMemDatanodeInjected
	}
	return nil
}

// Close implements Datanode.
func (d *MemDatanode) Close() error { return nil }

// Calls returns every CopyBlock request this fake has received, for test
// assertions about fan-out shape.
func (d *MemDatanode) Calls() []CopyBlockReq {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]CopyBlockReq(nil), d.calls...)
}
