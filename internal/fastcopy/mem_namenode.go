// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"sort"
	"sync"
)

// memFile is one path's worth of state in a MemNamenode.
type memFile struct {
	attrs    FileAttrs
	blocks   []LocatedBlock
	complete bool
}

// MemNamenode is an in-memory fake of Namenode for tests, in the same
// spirit as the teacher's memCuratorTalker: no network, fully
// inspectable state, and knobs to script the exact failure sequences the
// end-to-end scenarios require.
type MemNamenode struct {
	mu    sync.Mutex
	files map[string]*memFile

	federated bool
	nextID    int64

	// NotReplicatedYetFor schedules, per path, how many subsequent
	// AddBlock calls should fail with ErrNotReplicatedYet before
	// succeeding.
	NotReplicatedYetFor map[string]int

	// CompleteDelayFor schedules, per path, how many subsequent Complete
	// calls should report done=false before reporting true.
	CompleteDelayFor map[string]int

	renewals int
	closed   bool
}

// NewMemNamenode creates an empty fake, federation-aware iff federated.
func NewMemNamenode(federated bool) *MemNamenode {
	return &MemNamenode{
		files:               make(map[string]*memFile),
		federated:           federated,
		NotReplicatedYetFor: make(map[string]int),
		CompleteDelayFor:    make(map[string]int),
	}
}

// Seed installs a source file with the given attributes and blocks, for
// tests to then read back via GetFileInfo/GetBlockLocations.
func (m *MemNamenode) Seed(path string, attrs FileAttrs, blocks []LocatedBlock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{attrs: attrs, blocks: append([]LocatedBlock(nil), blocks...)}
}

func (m *MemNamenode) GetFileInfo(ctx context.Context, path string) (FileAttrs, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return FileAttrs{}, false, nil
	}
	return f.attrs, true, nil
}

func (m *MemNamenode) GetBlockLocations(ctx context.Context, path string) (LocatedBlocks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return LocatedBlocks{}, ErrSourceNotFound
	}
	return LocatedBlocks{
		Blocks:    append([]LocatedBlock(nil), f.blocks...),
		Federated: m.federated,
	}, nil
}

func (m *MemNamenode) Create(ctx context.Context, path string, attrs FileAttrs, clientName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{attrs: attrs}
	return nil
}

func (m *MemNamenode) AddBlock(ctx context.Context, path, clientName string, favoredNodes []DatanodeRef, startPos int64) (LocatedBlock, NamespaceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.NotReplicatedYetFor[path]; n > 0 {
		m.NotReplicatedYetFor[path] = n - 1
		return LocatedBlock{}, 0, ErrNotReplicatedYet
	}

	f, ok := m.files[path]
	if !ok {
		f = &memFile{}
		m.files[path] = f
	}
	m.nextID++
	locs := append([]DatanodeRef(nil), favoredNodes...)
	sort.Slice(locs, func(i, j int) bool { return locs[i].HostPort < locs[j].HostPort })
	block := LocatedBlock{
		Block:  BlockID{ID: m.nextID, GenerationStamp: 1},
		Locs:   locs,
		Offset: startPos,
	}
	f.blocks = append(f.blocks, block)
	return block, 0, nil
}

func (m *MemNamenode) Complete(ctx context.Context, path, clientName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.CompleteDelayFor[path]; n > 0 {
		m.CompleteDelayFor[path] = n - 1
		return false, nil
	}
	f, ok := m.files[path]
	if !ok {
		return false, nil
	}
	f.complete = true
	return true, nil
}

func (m *MemNamenode) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *MemNamenode) RenewLease(ctx context.Context, clientName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewals++
	return nil
}

func (m *MemNamenode) Federated(ctx context.Context) (bool, error) { return m.federated, nil }

func (m *MemNamenode) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Exists reports whether path is currently present, for test assertions.
func (m *MemNamenode) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

// Renewals returns how many times RenewLease has been called.
func (m *MemNamenode) Renewals() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renewals
}
