// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/westerndigitalcorporation/fastcopy/pkg/rpc"
)

func testConfig() Config {
	return Config{
		FileWaitTime:         2 * time.Second,
		MinReplication:       1,
		MaxDatanodeErrors:    5,
		BlockPoolSize:        5,
		FilePoolSize:         5,
		NotReplicatedRetries: 5,
		NotReplicatedSleep:   time.Millisecond,
		CommitPollSleep:      time.Millisecond,
	}
}

func newJob(src, dst string, srcNN, dstNN Namenode, conns *DatanodeConnectionCache, cfg Config) *FileCopyJob {
	return &FileCopyJob{
		Src:        src,
		Dst:        dst,
		ClientName: "test-client",
		SrcNN:      srcNN,
		DstNN:      dstNN,
		Conns:      conns,
		Errors:     NewDatanodeErrorRegistry(cfg.MaxDatanodeErrors),
		Blocks:     NewBlockStatusRegistry(cfg.MinReplication),
		Files:      NewFileStatusRegistry(),
		Config:     cfg,
	}
}

func sharedConns(dn *MemDatanode) *DatanodeConnectionCache {
	return NewDatanodeConnectionCache(nil, func(*rpc.ConnectionCache, DatanodeRef) Datanode { return dn })
}

func seedOneBlockFile(nn *MemNamenode, path string, locs []DatanodeRef) {
	nn.Seed(path, FileAttrs{Path: path, Replication: int16(len(locs)), BlockSize: 128 << 20}, []LocatedBlock{
		{Block: BlockID{ID: 1, GenerationStamp: 1}, Locs: locs, Length: 64 << 20},
	})
}

func TestFileCopyJobHappyPathAllReplicasSucceed(t *testing.T) {
	locs := []DatanodeRef{{HostPort: "s1:1"}, {HostPort: "s2:1"}, {HostPort: "s3:1"}}
	srcNN := NewMemNamenode(false)
	seedOneBlockFile(srcNN, "/src", locs)
	dstNN := NewMemNamenode(false)

	cfg := testConfig()
	cfg.MinReplication = 3
	job := newJob("/src", "/dst", srcNN, dstNN, sharedConns(NewMemDatanode()), cfg)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %s", err)
	}
	if !dstNN.Exists("/dst") {
		t.Fatalf("expected destination to exist after a successful copy")
	}
}

func TestFileCopyJobPartialReplicaFailureStillGood(t *testing.T) {
	locs := []DatanodeRef{{HostPort: "s1:1"}, {HostPort: "s2:1"}, {HostPort: "s3:1"}}
	srcNN := NewMemNamenode(false)
	seedOneBlockFile(srcNN, "/src", locs)
	dstNN := NewMemNamenode(false)

	dn := NewMemDatanode()
	dn.FailFor["s2:1"] = 1 // one replica fails once; no retry of that replica alone

	cfg := testConfig()
	cfg.MinReplication = 2 // 2 of 3 is enough
	job := newJob("/src", "/dst", srcNN, dstNN, sharedConns(dn), cfg)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected success despite one failed replica, got %s", err)
	}
	if !dstNN.Exists("/dst") {
		t.Fatalf("expected destination to exist")
	}
}

func TestFileCopyJobAllReplicasFailDeletesDestination(t *testing.T) {
	locs := []DatanodeRef{{HostPort: "s1:1"}, {HostPort: "s2:1"}, {HostPort: "s3:1"}}
	srcNN := NewMemNamenode(false)
	seedOneBlockFile(srcNN, "/src", locs)
	dstNN := NewMemNamenode(false)

	dn := NewMemDatanode()
	dn.FailFor["s1:1"] = 1
	dn.FailFor["s2:1"] = 1
	dn.FailFor["s3:1"] = 1

	cfg := testConfig()
	cfg.MinReplication = 1
	job := newJob("/src", "/dst", srcNN, dstNN, sharedConns(dn), cfg)

	err := job.Run(context.Background())
	if !errors.Is(err, ErrAllReplicasFailed) {
		t.Fatalf("expected ErrAllReplicasFailed, got %v", err)
	}
	if dstNN.Exists("/dst") {
		t.Fatalf("expected destination to be cleaned up after every replica failed")
	}
}

func TestFileCopyJobNotReplicatedYetBackoffThenSucceeds(t *testing.T) {
	locs := []DatanodeRef{{HostPort: "s1:1"}}
	srcNN := NewMemNamenode(false)
	seedOneBlockFile(srcNN, "/src", locs)
	dstNN := NewMemNamenode(false)
	dstNN.NotReplicatedYetFor["/dst"] = 2 // fails twice, succeeds on the 3rd AddBlock

	cfg := testConfig()
	job := newJob("/src", "/dst", srcNN, dstNN, sharedConns(NewMemDatanode()), cfg)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected the bounded retry to eventually succeed, got %s", err)
	}
}

func TestFileCopyJobNotReplicatedYetExhaustsRetries(t *testing.T) {
	locs := []DatanodeRef{{HostPort: "s1:1"}}
	srcNN := NewMemNamenode(false)
	seedOneBlockFile(srcNN, "/src", locs)
	dstNN := NewMemNamenode(false)
	dstNN.NotReplicatedYetFor["/dst"] = 1000 // never recovers within the retry bound

	cfg := testConfig()
	cfg.NotReplicatedRetries = 3
	job := newJob("/src", "/dst", srcNN, dstNN, sharedConns(NewMemDatanode()), cfg)

	err := job.Run(context.Background())
	if !errors.Is(err, ErrNotReplicatedYet) {
		t.Fatalf("expected ErrNotReplicatedYet once retries are exhausted, got %v", err)
	}
}

func TestFileCopyJobCrossFederationRejected(t *testing.T) {
	locs := []DatanodeRef{{HostPort: "s1:1"}}
	srcNN := NewMemNamenode(true)
	seedOneBlockFile(srcNN, "/src", locs)
	dstNN := NewMemNamenode(false)

	cfg := testConfig()
	job := newJob("/src", "/dst", srcNN, dstNN, sharedConns(NewMemDatanode()), cfg)

	err := job.Run(context.Background())
	if !errors.Is(err, ErrCrossFederation) {
		t.Fatalf("expected ErrCrossFederation, got %v", err)
	}
	if dstNN.Exists("/dst") {
		t.Fatalf("expected destination to be cleaned up after a federation mismatch")
	}
}

func TestFileCopyJobSourceMissing(t *testing.T) {
	srcNN := NewMemNamenode(false)
	dstNN := NewMemNamenode(false)
	cfg := testConfig()
	job := newJob("/never-seeded", "/dst", srcNN, dstNN, sharedConns(NewMemDatanode()), cfg)

	err := job.Run(context.Background())
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}
