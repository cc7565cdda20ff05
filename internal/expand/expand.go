// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package expand turns a CLI invocation's source patterns and destination
// path into the concrete (src, dst) file pairs fast copy should run, the
// way a shell glob and `cp -r` would: glob-expanding each source, pairing
// plain files directly with the destination (or destination/basename when
// the destination is an existing directory), and recursively listing
// directories.
package expand

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/westerndigitalcorporation/fastcopy/internal/fastcopy"
)

// Pair is one expanded (source, destination) file to copy.
type Pair struct {
	Src string
	Dst string
}

// FileSystem is the minimal stat/glob/walk surface expansion needs. The
// default implementation, Local, resolves against the local filesystem;
// a cluster-backed fast copy CLI would supply one that resolves HDFS-style
// URIs instead, which is why this lives behind an interface rather than
// calling os.Stat directly.
type FileSystem interface {
	// Glob expands a shell-style pattern to the paths that match it.
	Glob(pattern string) ([]string, error)
	// Stat reports whether path exists and, if so, whether it's a
	// directory.
	Stat(path string) (isDir bool, exists bool, err error)
	// Walk invokes fn once for every regular file found recursively
	// under root (root itself must be a directory).
	Walk(root string, fn func(path string) error) error
}

// Local is a FileSystem backed by the local filesystem, using
// github.com/karrick/godirwalk for the recursive listing since it avoids
// the extra per-entry os.Lstat that path/filepath.Walk performs.
type Local struct{}

func (Local) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

func (Local) Stat(path string) (isDir, exists bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return fi.IsDir(), true, nil
}

func (Local) Walk(root string, fn func(path string) error) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			return fn(path)
		},
	})
}

// Expand glob-expands every entry of srcs against fsys and pairs the
// results with dst, following the rules in the directory/request
// expansion contract:
//   - an empty glob is fatal.
//   - a plain file pairs with dst directly if dst is file-typed or
//     doesn't exist, else with dst/basename(src).
//   - a directory is recursively expanded; the root its contents land
//     under is dst if dst doesn't exist, else dst/basename(src).
//   - if more than one source results, dst must already be an existing
//     directory.
func Expand(fsys FileSystem, srcs []string, dst string) ([]Pair, error) {
	dstIsDir, dstExists, err := fsys.Stat(dst)
	if err != nil {
		return nil, err
	}
	dstIsFileTyped := dstExists && !dstIsDir

	var expanded []string
	for _, pattern := range srcs {
		matches, err := fsys.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand: %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", pattern, fastcopy.ErrEmptyGlob)
		}
		expanded = append(expanded, matches...)
	}

	var pairs []Pair
	for _, src := range expanded {
		isDir, exists, err := fsys.Stat(src)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%s: %w", src, fastcopy.ErrSourceNotFound)
		}

		if !isDir {
			if dstIsFileTyped || !dstExists {
				pairs = append(pairs, Pair{Src: src, Dst: dst})
			} else {
				pairs = append(pairs, Pair{Src: src, Dst: filepath.Join(dst, filepath.Base(src))})
			}
			continue
		}

		root := dst
		if dstExists {
			root = filepath.Join(dst, filepath.Base(src))
		}
		if err := fsys.Walk(src, func(path string) error {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			pairs = append(pairs, Pair{Src: path, Dst: filepath.Join(root, rel)})
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if len(expanded) > 1 && dstExists && !dstIsDir {
		return nil, fmt.Errorf("%s: %w", dst, fastcopy.ErrDestinationNotDirectory)
	}
	if len(expanded) > 1 && !dstExists {
		return nil, fmt.Errorf("%s: %w", dst, fastcopy.ErrDestinationMissing)
	}

	return pairs, nil
}
