// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"fmt"
	"time"
)

// Config holds the tunables for an Orchestrator. Field names mirror the
// dfs.fastcopy.* configuration keys documented for the tool; defaults match
// the stock behavior of the original fast copy utility.
type Config struct {
	// FileWaitTime bounds how long a single file's block pool is given to
	// drain and how long the commit-poll loop will retry before giving up.
	// dfs.fastcopy.file.wait_time, default 30m.
	FileWaitTime time.Duration

	// MinReplication is the number of good replicas required before a
	// block is considered durable. dfs.replication.min, default 1.
	MinReplication int

	// MaxDatanodeErrors is the per-datanode error count above which a
	// BlockCopyTask refuses to contact that node.
	// dfs.fastcopy.max.datanode.errors, default 5.
	MaxDatanodeErrors int

	// BlockPoolSize is the per-file concurrency for replica copy RPCs.
	// dfs.fastcopy.blockRPC.pool_size, default 5.
	BlockPoolSize int

	// FilePoolSize is the number of files copied concurrently by one
	// Orchestrator. Corresponds to the CLI's -t/--threads flag.
	FilePoolSize int

	// DialTimeout bounds establishing a new datanode or namenode RPC
	// connection.
	DialTimeout time.Duration

	// BlockCopyTimeout bounds a single copy-block RPC. The reference
	// tool used 8 minutes, matching the namenode's own pending
	// replication monitor timeout.
	BlockCopyTimeout time.Duration

	// LeaseRenewInterval is the cadence at which the destination lease is
	// renewed for the client identity.
	LeaseRenewInterval time.Duration

	// NotReplicatedRetries bounds how many times addBlock is retried
	// after a "not replicated yet" rejection, sleeping NotReplicatedSleep
	// between attempts.
	NotReplicatedRetries int
	NotReplicatedSleep   time.Duration

	// CommitPollSleep is how long the commit loop sleeps between retries
	// of the destination namenode's complete() call.
	CommitPollSleep time.Duration
}

// DefaultConfig mirrors the hardcoded defaults of the original tool.
var DefaultConfig = Config{
	FileWaitTime:         30 * time.Minute,
	MinReplication:       1,
	MaxDatanodeErrors:    5,
	BlockPoolSize:        5,
	FilePoolSize:         5,
	DialTimeout:          10 * time.Second,
	BlockCopyTimeout:     8 * time.Minute,
	LeaseRenewInterval:   1 * time.Second,
	NotReplicatedRetries: 10,
	NotReplicatedSleep:   1 * time.Second,
	CommitPollSleep:      5 * time.Second,
}

// Validate checks that the configuration is internally consistent,
// returning an error for the first value that can't work. It does not fill
// in defaults for zero-valued fields.
func (c *Config) Validate() error {
	if c.MinReplication < 1 {
		return fmt.Errorf("fastcopy: MinReplication must be >= 1, got %d", c.MinReplication)
	}
	if c.MaxDatanodeErrors < 0 {
		return fmt.Errorf("fastcopy: MaxDatanodeErrors must be >= 0, got %d", c.MaxDatanodeErrors)
	}
	if c.BlockPoolSize < 1 {
		return fmt.Errorf("fastcopy: BlockPoolSize must be >= 1, got %d", c.BlockPoolSize)
	}
	if c.FilePoolSize < 1 {
		return fmt.Errorf("fastcopy: FilePoolSize must be >= 1, got %d", c.FilePoolSize)
	}
	if c.FileWaitTime <= 0 {
		return fmt.Errorf("fastcopy: FileWaitTime must be positive, got %s", c.FileWaitTime)
	}
	return nil
}
