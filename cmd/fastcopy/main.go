// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/fastcopy/internal/expand"
	"github.com/westerndigitalcorporation/fastcopy/internal/fastcopy"
	"github.com/westerndigitalcorporation/fastcopy/internal/server"
	"github.com/westerndigitalcorporation/fastcopy/pkg/rpc"
)

var (
	threads     = flag.Int("t", fastcopy.DefaultConfig.FilePoolSize, "number of concurrent files to copy (also --threads)")
	threadsLong = flag.Int("threads", fastcopy.DefaultConfig.FilePoolSize, "number of concurrent files to copy")
	srcNamenode = flag.String("src-namenode", "", "address of the source namenode (host:port); defaults to -namenode")
	dstNamenode = flag.String("dst-namenode", "", "address of the destination namenode (host:port); defaults to -namenode")
	namenode    = flag.String("namenode", "", "address of the namenode to use for both source and destination when they're the same cluster")
	debugAddr   = flag.String("debug-addr", "", "if set, serve a /_quit endpoint here to kill a long-running copy (host:port)")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: fastcopy [options] <src...> <dst>\n")
	flag.PrintDefaults()
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Usage = usage
	flag.Parse()

	if *debugAddr != "" {
		http.HandleFunc("/_quit", server.QuitHandler)
		go func() {
			if err := http.ListenAndServe(*debugAddr, nil); err != nil {
				log.Errorf("fastcopy: debug HTTP server on %s exited: %s", *debugAddr, err)
			}
		}()
	}

	poolSize := fastcopy.DefaultConfig.FilePoolSize
	switch {
	case isFlagSet("t"):
		poolSize = *threads
	case isFlagSet("threads"):
		poolSize = *threadsLong
	}

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}
	srcs, dst := args[:len(args)-1], args[len(args)-1]

	pairs, err := expand.Expand(expand.Local{}, srcs, dst)
	if err != nil {
		log.Errorf("fastcopy: %s", err)
		os.Exit(1)
	}

	srcAddr := firstNonEmpty(*srcNamenode, *namenode)
	dstAddr := firstNonEmpty(*dstNamenode, *namenode)
	if srcAddr == "" || dstAddr == "" {
		fmt.Fprintln(os.Stderr, "fastcopy: -namenode (or both -src-namenode and -dst-namenode) is required")
		os.Exit(1)
	}

	cfg := fastcopy.DefaultConfig
	cfg.FilePoolSize = poolSize

	transport := rpc.NewConnectionCache(cfg.DialTimeout, cfg.BlockCopyTimeout, 0)
	srcNN := fastcopy.NewRPCNamenode(transport, srcAddr)
	var dstNN fastcopy.Namenode = srcNN
	if dstAddr != srcAddr {
		dstNN = fastcopy.NewRPCNamenode(transport, dstAddr)
	}
	conns := fastcopy.NewDatanodeConnectionCache(transport, nil)

	orc, err := fastcopy.NewOrchestrator(cfg, srcNN, dstNN, conns)
	if err != nil {
		log.Errorf("fastcopy: %s", err)
		os.Exit(1)
	}
	defer orc.Shutdown()

	reqs := make([]fastcopy.Request, len(pairs))
	for i, p := range pairs {
		reqs[i] = fastcopy.Request{Src: p.Src, Dst: p.Dst}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Hour)
	defer cancel()

	errs := orc.CopyAll(ctx, reqs)
	for _, e := range errs {
		log.Warningf("fastcopy: failed for %s -> %s: %s", e.Request.Src, e.Request.Dst, e.Err)
	}
	if len(errs) > 0 {
		os.Exit(2)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
