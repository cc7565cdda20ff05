// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package fastcopy implements intra-cluster fast file copy: given a source
// and destination path on the same block-based distributed filesystem (or
// two clusters sharing a datanode fleet), it causes every replica of every
// block of the source to be duplicated locally on the datanode that
// already holds it, then commits a fully-replicated destination file.
package fastcopy

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/fastcopy/internal/server"
)

// Request is one source/destination pair to copy.
type Request struct {
	Src string
	Dst string
}

// Orchestrator is the process-wide façade: it owns the shared caches and
// registries, runs a bounded pool of FileCopyJobs, and tears everything
// down on Shutdown. It corresponds to the FastCopy type in the reference
// tool.
type Orchestrator struct {
	cfg        Config
	clientName string

	srcNN Namenode
	dstNN Namenode
	conns *DatanodeConnectionCache

	errors  *DatanodeErrorRegistry
	blocks  *BlockStatusRegistry
	files   *FileStatusRegistry
	metrics *Metrics

	lease    *LeaseRenewer
	filePool server.Semaphore

	mu       sync.Mutex
	shutdown bool
}

// NewOrchestrator builds an Orchestrator. srcNN and dstNN should be the
// same Namenode value when the source and destination URIs resolve to the
// same namenode, avoiding a redundant RPC proxy; conns is the shared
// datanode connection cache. The client identity is a fresh random string
// per instance, per the lease-holder randomness requirement: two
// orchestrators in the same process must never collide.
func NewOrchestrator(cfg Config, srcNN, dstNN Namenode, conns *DatanodeConnectionCache) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:        cfg,
		clientName: fmt.Sprintf("FastCopy%d", rand.Int63()),
		srcNN:      srcNN,
		dstNN:      dstNN,
		conns:      conns,
		errors:     NewDatanodeErrorRegistry(cfg.MaxDatanodeErrors),
		blocks:     NewBlockStatusRegistry(cfg.MinReplication),
		files:      NewFileStatusRegistry(),
		metrics:    NewMetrics(),
		filePool:   server.NewSemaphore(cfg.FilePoolSize),
	}
	o.lease = NewLeaseRenewer(dstNN, o.clientName, cfg.LeaseRenewInterval)
	o.lease.Start(context.Background())
	return o, nil
}

// ClientName returns the lease-holder identity this orchestrator writes
// destination files as.
func (o *Orchestrator) ClientName() string { return o.clientName }

// Copy copies a single source to a single destination and blocks until it
// either completes or fails.
func (o *Orchestrator) Copy(ctx context.Context, src, dst string) error {
	errs := o.CopyAll(ctx, []Request{{Src: src, Dst: dst}})
	if len(errs) == 0 {
		return nil
	}
	return errs[0].Err
}

// RequestError pairs a Request with the error encountered copying it.
type RequestError struct {
	Request Request
	Err     error
}

// CopyAll schedules every request on the bounded file pool and blocks
// until all have finished. One request's failure does not cancel the
// others; every per-request error is returned, isolated, in the result
// slice (empty if everything succeeded).
func (o *Orchestrator) CopyAll(ctx context.Context, reqs []Request) []RequestError {
	var wg sync.WaitGroup
	errCh := make(chan RequestError, len(reqs))

	for _, req := range reqs {
		o.filePool.Acquire()
		wg.Add(1)
		go func(req Request) {
			defer o.filePool.Release()
			defer wg.Done()

			job := &FileCopyJob{
				Src:        req.Src,
				Dst:        req.Dst,
				ClientName: o.clientName,
				SrcNN:      o.srcNN,
				DstNN:      o.dstNN,
				Conns:      o.conns,
				Errors:     o.errors,
				Blocks:     o.blocks,
				Files:      o.files,
				Metrics:    o.metrics,
				Config:     o.cfg,
			}
			o.metrics.FileStarted()
			err := job.Run(ctx)
			o.metrics.FileFinished()
			if err != nil {
				errCh <- RequestError{Request: req, Err: err}
			}
		}(req)
	}

	wg.Wait()
	close(errCh)

	var errs []RequestError
	for e := range errCh {
		errs = append(errs, e)
	}
	return errs
}

// Status returns the observable completion counter for a destination
// path, or found=false if no block has completed for it yet.
func (o *Orchestrator) Status(dst string) (FileStatus, bool) {
	fs, ok := o.files.Get(dst)
	if !ok {
		return FileStatus{}, false
	}
	return *fs, true
}

// Shutdown stops lease renewal, closes both namenode handles (once, even
// if they're the same underlying connection) and every cached datanode
// handle. Safe to call more than once.
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return nil
	}
	o.shutdown = true
	o.mu.Unlock()

	o.lease.Stop()

	if err := o.srcNN.Close(); err != nil {
		log.Warningf("fastcopy: error closing source namenode handle: %s", err)
	}
	if o.dstNN != o.srcNN {
		if err := o.dstNN.Close(); err != nil {
			log.Warningf("fastcopy: error closing destination namenode handle: %s", err)
		}
	}
	o.conns.CloseAll()
	return nil
}
