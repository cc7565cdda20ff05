// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import "context"

// Datanode is the subset of the datanode RPC surface fast copy needs: one
// operation that instructs a datanode holding a source replica to push a
// local copy of it onto another datanode.
type Datanode interface {
	// CopyBlock instructs the datanode this handle addresses to produce a
	// replica of srcBlock (in namespace srcNS when federated is true) as
	// dstBlock on dst. It is synchronous: it does not return until dst
	// holds the replica.
	CopyBlock(ctx context.Context, srcNS NamespaceID, srcBlock BlockID, dstNS NamespaceID, dstBlock BlockID, dst DatanodeRef, federated bool) error

	// Close releases any transport resources held for this handle. Safe
	// to call more than once.
	Close() error
}
