// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"errors"
	"net/rpc"

	log "github.com/golang/glog"
)

// BlockCopyTask copies one replica of one block: it asks the source
// datanode to push a local copy of srcBlock onto DstDatanode as DstBlock,
// then accounts the outcome into the shared BlockStatus/FileStatus/error
// registries. No retry happens here; retry of a failed replica is
// implicit through the other replicas of the same block.
type BlockCopyTask struct {
	SrcBlock     BlockID
	SrcNamespace NamespaceID
	SrcDatanode  DatanodeRef

	DstBlock     BlockID
	DstNamespace NamespaceID
	DstDatanode  DatanodeRef

	Federated bool

	// DestPath and TotalBlocks identify which FileStatus to bump when
	// this replica's outcome resolves the block to Good.
	DestPath    string
	TotalBlocks int

	Conns    *DatanodeConnectionCache
	Errors   *DatanodeErrorRegistry
	Blocks   *BlockStatusRegistry
	Files    *FileStatusRegistry
	Metrics  *Metrics

	// OnBad is invoked, at most once, if this task's outcome is the one
	// that pushes DstBlock's tally to the Bad verdict. FileCopyJob uses
	// it to latch its sticky per-job error.
	OnBad func(block BlockID)
}

// isRemoteError reports whether err originated on the far end of the RPC
// (the server-side handler returned it) as opposed to a local failure
// (dial, timeout, context cancellation). net/rpc tags exactly the former
// case with rpc.ServerError; everything else is local.
func isRemoteError(err error) bool {
	var serverErr rpc.ServerError
	return errors.As(err, &serverErr)
}

// Run executes the task. It never returns an error to its caller: all
// outcomes are recorded into the shared registries, which is how
// FileCopyJob learns about them (via FileStatusRegistry.Wait and the
// sticky job error it threads through abort()).
func (t *BlockCopyTask) Run(ctx context.Context) {
	if t.Errors.Exceeds(t.SrcDatanode) || t.Errors.Exceeds(t.DstDatanode) {
		log.Warningf("fastcopy: skipping copy of %s to %s on %s: quarantined (src=%d dst=%d errors)",
			t.SrcBlock, t.DstBlock, t.DstDatanode, t.Errors.Count(t.SrcDatanode), t.Errors.Count(t.DstDatanode))
		// A skipped task still owes the block a verdict contribution, or
		// blocks gated out this way would never resolve and
		// FileStatusRegistry.Wait would hang until MAX_WAIT_TIME. The skip
		// is therefore recorded as a failed replica.
		t.resolve(false)
		return
	}

	handle := t.Conns.Get(t.SrcDatanode)
	err := handle.CopyBlock(ctx, t.SrcNamespace, t.SrcBlock, t.DstNamespace, t.DstBlock, t.DstDatanode, t.Federated)
	if err != nil {
		log.Warningf("fastcopy: copy %s -> %s on %s failed: %s", t.SrcBlock, t.DstBlock, t.DstDatanode, err)
		if isRemoteError(err) {
			t.Errors.Increment(t.DstDatanode)
		} else {
			t.Errors.Increment(t.SrcDatanode)
		}
	}
	if t.Metrics != nil {
		t.Metrics.ObserveBlockCopy(t.DstDatanode.HostPort, err == nil)
	}
	t.resolve(err == nil)
}

func (t *BlockCopyTask) resolve(success bool) {
	switch t.Blocks.Record(t.DstBlock, success) {
	case Good:
		t.Files.MarkBlockDone(t.DestPath, t.TotalBlocks)
	case Bad:
		if t.OnBad != nil {
			t.OnBad(t.DstBlock)
		}
		// OnBad (FileCopyJob.setStickyError) bumps no completion counter,
		// so a goroutine already parked in FileStatusRegistry.Wait would
		// otherwise never re-check its abort function until some other
		// block of the same file happened to complete.
		t.Files.Wake()
	}
}
