// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import "context"

// Namenode is the subset of namenode RPC operations fast copy drives,
// abstracted behind an interface so that RPCNamenode (production,
// HTTP/gob transport) and MemNamenode (in-memory fake for tests) can stand
// in for it interchangeably.
type Namenode interface {
	// GetFileInfo returns the attributes of path, or found=false if it
	// does not exist.
	GetFileInfo(ctx context.Context, path string) (attrs FileAttrs, found bool, err error)

	// GetBlockLocations fetches the complete block list for path. It
	// transparently picks the richest RPC shape the remote namenode
	// supports (federation-aware openAndFetchMetaInfo, falling back to
	// the legacy getBlockLocations) and caches which shape it resolved to
	// for the lifetime of this handle.
	GetBlockLocations(ctx context.Context, path string) (LocatedBlocks, error)

	// Create creates path as clientName, with overwrite=true and
	// createParent=true, matching attrs' permission/replication/block
	// size.
	Create(ctx context.Context, path string, attrs FileAttrs, clientName string) error

	// AddBlock allocates a new block appended to path, passing
	// favoredNodes as a placement hint and startPos as the block's byte
	// offset when the resolved RPC shape accepts it. Returns
	// ErrNotReplicatedYet for the namenode's transient "previous block
	// still settling" rejection; the caller is responsible for retrying.
	AddBlock(ctx context.Context, path string, clientName string, favoredNodes []DatanodeRef, startPos int64) (LocatedBlock, NamespaceID, error)

	// Complete asks the namenode to finalize path for clientName. It
	// returns done=false (with no error) while minReplication has not yet
	// been reached on every block.
	Complete(ctx context.Context, path string, clientName string) (done bool, err error)

	// Delete removes path, non-recursively. Used for best-effort cleanup
	// of a partially-created destination.
	Delete(ctx context.Context, path string) error

	// RenewLease renews clientName's write lease on every path it holds
	// open on this namenode.
	RenewLease(ctx context.Context, clientName string) error

	// Federated reports whether this namenode handle resolved to a
	// federation-aware RPC shape, probing and caching the answer on
	// first call. Used to enforce the cross-federation precondition
	// before any block is allocated.
	Federated(ctx context.Context) (bool, error)

	// Close releases any transport resources held for this handle.
	Close() error
}
