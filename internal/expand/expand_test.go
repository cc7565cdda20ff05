// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package expand

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/westerndigitalcorporation/fastcopy/internal/fastcopy"
)

// fakeFS is an in-memory FileSystem for testing expansion rules without
// touching the real filesystem. globs maps a pattern to its literal
// matches; dirs maps a directory path to the files it recursively
// contains.
type fakeFS struct {
	globs map[string][]string
	files map[string]bool // plain files
	dirs  map[string][]string
}

func (f *fakeFS) Glob(pattern string) ([]string, error) {
	if m, ok := f.globs[pattern]; ok {
		return m, nil
	}
	return nil, nil
}

func (f *fakeFS) Stat(path string) (isDir, exists bool, err error) {
	if _, ok := f.dirs[path]; ok {
		return true, true, nil
	}
	if f.files[path] {
		return false, true, nil
	}
	return false, false, nil
}

func (f *fakeFS) Walk(root string, fn func(path string) error) error {
	files, ok := f.dirs[root]
	if !ok {
		return errors.New("not a directory: " + root)
	}
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, p := range sorted {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func pairSet(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Src] = p.Dst
	}
	return m
}

func TestExpandSingleFileToNewDestination(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{"/a.txt": {"/a.txt"}},
		files: map[string]bool{"/a.txt": true},
	}
	pairs, err := Expand(fsys, []string{"/a.txt"}, "/b.txt")
	if err != nil {
		t.Fatalf("Expand: %s", err)
	}
	if len(pairs) != 1 || pairs[0].Src != "/a.txt" || pairs[0].Dst != "/b.txt" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestExpandSingleFileIntoExistingDirectory(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{"/a.txt": {"/a.txt"}},
		files: map[string]bool{"/a.txt": true},
		dirs:  map[string][]string{"/dst": nil},
	}
	pairs, err := Expand(fsys, []string{"/a.txt"}, "/dst")
	if err != nil {
		t.Fatalf("Expand: %s", err)
	}
	want := filepath.Join("/dst", "a.txt")
	if len(pairs) != 1 || pairs[0].Dst != want {
		t.Fatalf("expected dst %s, got %+v", want, pairs)
	}
}

func TestExpandEmptyGlobIsFatal(t *testing.T) {
	fsys := &fakeFS{globs: map[string][]string{}}
	_, err := Expand(fsys, []string{"/nomatch*"}, "/dst")
	if !errors.Is(err, fastcopy.ErrEmptyGlob) {
		t.Fatalf("expected ErrEmptyGlob, got %v", err)
	}
}

func TestExpandSourceMustExist(t *testing.T) {
	fsys := &fakeFS{globs: map[string][]string{"/ghost": {"/ghost"}}}
	_, err := Expand(fsys, []string{"/ghost"}, "/dst")
	if !errors.Is(err, fastcopy.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestExpandDirectoryRecursesIntoNewDestination(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{"/srcdir": {"/srcdir"}},
		dirs: map[string][]string{
			"/srcdir": {"/srcdir/a.txt", "/srcdir/sub/b.txt"},
		},
	}
	pairs, err := Expand(fsys, []string{"/srcdir"}, "/dst")
	if err != nil {
		t.Fatalf("Expand: %s", err)
	}
	got := pairSet(pairs)
	if got["/srcdir/a.txt"] != filepath.Join("/dst", "a.txt") {
		t.Fatalf("unexpected pairing: %+v", got)
	}
	if got["/srcdir/sub/b.txt"] != filepath.Join("/dst", "sub", "b.txt") {
		t.Fatalf("unexpected pairing: %+v", got)
	}
}

func TestExpandDirectoryIntoExistingDestinationNestsByBasename(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{"/srcdir": {"/srcdir"}},
		dirs: map[string][]string{
			"/srcdir": {"/srcdir/a.txt"},
			"/dst":    nil,
		},
	}
	pairs, err := Expand(fsys, []string{"/srcdir"}, "/dst")
	if err != nil {
		t.Fatalf("Expand: %s", err)
	}
	want := filepath.Join("/dst", "srcdir", "a.txt")
	if len(pairs) != 1 || pairs[0].Dst != want {
		t.Fatalf("expected %s, got %+v", want, pairs)
	}
}

func TestExpandMultipleSourcesRequireExistingDestinationDirectory(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{
			"/a.txt": {"/a.txt"},
			"/b.txt": {"/b.txt"},
		},
		files: map[string]bool{"/a.txt": true, "/b.txt": true},
	}
	_, err := Expand(fsys, []string{"/a.txt", "/b.txt"}, "/missing-dst")
	if !errors.Is(err, fastcopy.ErrDestinationMissing) {
		t.Fatalf("expected ErrDestinationMissing, got %v", err)
	}
}

func TestExpandMultipleSourcesIntoExistingFileIsRejected(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{
			"/a.txt": {"/a.txt"},
			"/b.txt": {"/b.txt"},
		},
		files: map[string]bool{"/a.txt": true, "/b.txt": true, "/dst": true},
	}
	_, err := Expand(fsys, []string{"/a.txt", "/b.txt"}, "/dst")
	if !errors.Is(err, fastcopy.ErrDestinationNotDirectory) {
		t.Fatalf("expected ErrDestinationNotDirectory, got %v", err)
	}
}

func TestExpandMultipleSourcesIntoExistingDirectorySucceeds(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{
			"/a.txt": {"/a.txt"},
			"/b.txt": {"/b.txt"},
		},
		files: map[string]bool{"/a.txt": true, "/b.txt": true},
		dirs:  map[string][]string{"/dst": nil},
	}
	pairs, err := Expand(fsys, []string{"/a.txt", "/b.txt"}, "/dst")
	if err != nil {
		t.Fatalf("Expand: %s", err)
	}
	got := pairSet(pairs)
	if got["/a.txt"] != filepath.Join("/dst", "a.txt") || got["/b.txt"] != filepath.Join("/dst", "b.txt") {
		t.Fatalf("unexpected pairs: %+v", got)
	}
}

func TestExpandGlobExpandsToMultipleMatches(t *testing.T) {
	fsys := &fakeFS{
		globs: map[string][]string{"/data/*.txt": {"/data/a.txt", "/data/b.txt"}},
		files: map[string]bool{"/data/a.txt": true, "/data/b.txt": true},
		dirs:  map[string][]string{"/dst": nil},
	}
	pairs, err := Expand(fsys, []string{"/data/*.txt"}, "/dst")
	if err != nil {
		t.Fatalf("Expand: %s", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(pairs), pairs)
	}
}
