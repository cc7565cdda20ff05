// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/fastcopy/internal/server"
	"github.com/westerndigitalcorporation/fastcopy/pkg/retry"
)

// FileCopyJob runs the per-file pipeline: fetch source metadata, create
// the destination, then allocate-and-fan-out one block at a time with
// backpressure, drain the per-file block pool, and commit. One FileCopyJob
// exists per (src, dst) pair submitted to an Orchestrator.
type FileCopyJob struct {
	Src, Dst   string
	ClientName string

	SrcNN Namenode
	DstNN Namenode

	Conns   *DatanodeConnectionCache
	Errors  *DatanodeErrorRegistry
	Blocks  *BlockStatusRegistry
	Files   *FileStatusRegistry
	Metrics *Metrics

	Config Config

	mu      sync.Mutex
	errOnce error

	destCreated bool
}

// Run executes the job to completion or to its first fatal error. On any
// fatal error after the destination has been created, Run deletes it
// (best-effort) before returning.
func (j *FileCopyJob) Run(ctx context.Context) error {
	start := time.Now()
	err := j.run(ctx)
	if j.Metrics != nil {
		j.Metrics.ObserveFileCopy(time.Since(start).Seconds(), err == nil)
	}
	return err
}

func (j *FileCopyJob) run(ctx context.Context) error {
	srcAttrs, found, err := j.SrcNN.GetFileInfo(ctx, j.Src)
	if err != nil {
		return fmt.Errorf("fastcopy: getting file info for %s: %w", j.Src, err)
	}
	if !found {
		return fmt.Errorf("%s: %w", j.Src, ErrSourceNotFound)
	}

	if err := j.DstNN.Create(ctx, j.Dst, srcAttrs, j.ClientName); err != nil {
		return fmt.Errorf("fastcopy: creating %s: %w", j.Dst, err)
	}
	j.destCreated = true

	if err := j.copy(ctx, srcAttrs); err != nil {
		log.Errorf("fastcopy: failed to copy %s to %s: %s", j.Src, j.Dst, err)
		if delErr := j.DstNN.Delete(ctx, j.Dst); delErr != nil {
			log.Errorf("fastcopy: failed to clean up partial destination %s: %s", j.Dst, delErr)
		}
		return err
	}
	return nil
}

func (j *FileCopyJob) copy(ctx context.Context, srcAttrs FileAttrs) error {
	srcBlocks, err := j.SrcNN.GetBlockLocations(ctx, j.Src)
	if err != nil {
		return fmt.Errorf("fastcopy: fetching block locations for %s: %w", j.Src, err)
	}

	dstFederated, err := j.DstNN.Federated(ctx)
	if err != nil {
		return fmt.Errorf("fastcopy: probing destination capabilities: %w", err)
	}
	if srcBlocks.Federated != dstFederated {
		return ErrCrossFederation
	}

	totalBlocks := len(srcBlocks.Blocks)
	pool := server.NewSemaphore(j.Config.BlockPoolSize)
	var wg sync.WaitGroup

	blocksAdded := 0
	startPos := int64(0)

	for _, srcBlock := range srcBlocks.Blocks {
		dstBlock, dstNS, err := j.allocateBlock(ctx, srcBlock.Locs, startPos)
		if err != nil {
			return fmt.Errorf("fastcopy: allocating block %d of %s: %w", blocksAdded, j.Dst, err)
		}
		blocksAdded++
		startPos += srcBlock.Length

		srcLocs := sortedLocs(srcBlock.Locs)
		dstLocs := sortedLocs(dstBlock.Locs)
		blocksToCopy := len(srcLocs)
		if len(dstLocs) < blocksToCopy {
			blocksToCopy = len(dstLocs)
		}
		j.Blocks.Register(dstBlock.Block, blocksToCopy)

		for i := 0; i < blocksToCopy; i++ {
			pool.Acquire()
			wg.Add(1)
			task := &BlockCopyTask{
				SrcBlock:     srcBlock.Block,
				SrcNamespace: srcBlocks.NamespaceID,
				SrcDatanode:  srcLocs[i],
				DstBlock:     dstBlock.Block,
				DstNamespace: dstNS,
				DstDatanode:  dstLocs[i],
				Federated:    dstFederated,
				DestPath:     j.Dst,
				TotalBlocks:  totalBlocks,
				Conns:        j.Conns,
				Errors:       j.Errors,
				Blocks:       j.Blocks,
				Files:        j.Files,
				Metrics:      j.Metrics,
				OnBad:        j.setStickyError,
			}
			go func() {
				defer pool.Release()
				defer wg.Done()
				task.Run(ctx)
			}()
		}

		if err := j.Files.Wait(ctx, j.Dst, blocksAdded, j.checkError); err != nil {
			return err
		}
	}

	if err := j.drain(ctx, &wg); err != nil {
		return err
	}
	if err := j.checkError(); err != nil {
		return err
	}

	return j.commit(ctx)
}

func (j *FileCopyJob) drain(ctx context.Context, wg *sync.WaitGroup) error {
	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-time.After(j.Config.FileWaitTime):
		return ErrDrainTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// allocateBlock retries the namenode's transient "not replicated yet"
// rejection up to Config.NotReplicatedRetries times, sleeping
// Config.NotReplicatedSleep in between; any other error is fatal
// immediately.
func (j *FileCopyJob) allocateBlock(ctx context.Context, favoredNodes []DatanodeRef, startPos int64) (LocatedBlock, NamespaceID, error) {
	r := &retry.Retrier{
		MinSleep:      j.Config.NotReplicatedSleep,
		MaxSleep:      j.Config.NotReplicatedSleep,
		MaxNumRetries: j.Config.NotReplicatedRetries,
	}

	var result LocatedBlock
	var ns NamespaceID
	var lastErr error

	_, cancelled := r.Do(ctx, func(attempt int) bool {
		lb, nsid, err := j.DstNN.AddBlock(ctx, j.Dst, j.ClientName, favoredNodes, startPos)
		if err == nil {
			result, ns, lastErr = lb, nsid, nil
			return true
		}
		lastErr = err
		return !errors.Is(err, ErrNotReplicatedYet)
	})
	if cancelled {
		return LocatedBlock{}, 0, ctx.Err()
	}
	if lastErr != nil {
		return LocatedBlock{}, 0, lastErr
	}
	return result, ns, nil
}

func (j *FileCopyJob) commit(ctx context.Context) error {
	deadline := time.Now().Add(j.Config.FileWaitTime)
	for {
		done, err := j.DstNN.Complete(ctx, j.Dst, j.ClientName)
		if err != nil {
			return fmt.Errorf("fastcopy: completing %s: %w", j.Dst, err)
		}
		if done {
			return nil
		}
		if err := j.checkError(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return ErrCommitTimeout
		}
		select {
		case <-time.After(j.Config.CommitPollSleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (j *FileCopyJob) setStickyError(block BlockID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.errOnce == nil {
		j.errOnce = fmt.Errorf("%w: %s", ErrAllReplicasFailed, block)
	}
}

func (j *FileCopyJob) checkError() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errOnce
}

// sortedLocs returns a deterministically-ordered copy of locs, so that
// pairing source and destination replica lists positionally does not
// depend on the order the namenode happened to return them in.
func sortedLocs(locs []DatanodeRef) []DatanodeRef {
	out := append([]DatanodeRef(nil), locs...)
	sort.Slice(out, func(i, j int) bool { return out[i].HostPort < out[j].HostPort })
	return out
}
