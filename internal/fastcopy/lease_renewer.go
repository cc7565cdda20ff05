// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"context"
	"time"

	log "github.com/golang/glog"
)

// LeaseRenewer is the sole long-lived background task in an Orchestrator:
// it renews the client's write lease on the destination namenode at a
// fixed cadence for as long as the orchestrator is alive. A renewal
// failure is logged and swallowed rather than propagated — if the lease
// truly lapses, the next namenode RPC a FileCopyJob makes will surface the
// condition on its own.
type LeaseRenewer struct {
	nn         Namenode
	clientName string
	interval   time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewLeaseRenewer creates a renewer that is not yet running; call Start.
func NewLeaseRenewer(nn Namenode, clientName string, interval time.Duration) *LeaseRenewer {
	return &LeaseRenewer{
		nn:         nn,
		clientName: clientName,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the renewal loop in its own goroutine.
func (r *LeaseRenewer) Start(ctx context.Context) {
	go r.loop(ctx)
}

func (r *LeaseRenewer) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.nn.RenewLease(ctx, r.clientName); err != nil {
				log.Warningf("fastcopy: lease renewal failed for %s: %s", r.clientName, err)
			}
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the renewal loop to exit and blocks until it has.
func (r *LeaseRenewer) Stop() {
	select {
	case <-r.stop:
		// already stopped
	default:
		close(r.stop)
	}
	<-r.done
}
