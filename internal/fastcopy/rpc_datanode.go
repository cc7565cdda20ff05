// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"

	"github.com/westerndigitalcorporation/fastcopy/pkg/rpc"
)

// RPCDatanode is the production Datanode implementation: every method is a
// single blocking RPC through a shared transport rpc.ConnectionCache,
// following the same one-method-per-verb shape as the teacher's
// RPCCuratorTalker.
type RPCDatanode struct {
	transport *rpc.ConnectionCache
	addr      string
}

// NewRPCDatanode builds a handle addressing node over transport. Creating
// the handle does not dial; the first RPC does.
func NewRPCDatanode(transport *rpc.ConnectionCache, node DatanodeRef) *RPCDatanode {
	return &RPCDatanode{transport: transport, addr: node.HostPort}
}

// CopyBlock implements Datanode.
func (d *RPCDatanode) CopyBlock(ctx context.Context, srcNS NamespaceID, srcBlock BlockID, dstNS NamespaceID, dstBlock BlockID, dst DatanodeRef, federated bool) error {
	req := &CopyBlockReq{
		ID:             rpc.GenID(),
		SrcNamespaceID: srcNS,
		SrcBlock:       srcBlock,
		DstNamespaceID: dstNS,
		DstBlock:       dstBlock,
		DstDatanode:    dst,
		Federated:      federated,
	}
	var reply CopyBlockReply
	return d.transport.Send(ctx, d.addr, MethodCopyBlock, req, &reply)
}

// Close implements Datanode. The shared transport cache, not this handle,
// owns the underlying connection, so Close just drops it from the
// transport cache so a future dial starts fresh.
func (d *RPCDatanode) Close() error {
	d.transport.Remove(d.addr)
	return nil
}
