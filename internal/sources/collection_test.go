// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestExpandMdDirNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.md"), "a")
	writeTestFile(t, filepath.Join(dir, "b.md"), "b")
	writeTestFile(t, filepath.Join(dir, "c.txt"), "c")
	writeTestFile(t, filepath.Join(dir, "nested", "d.md"), "d")

	h := NewCollectionHandler()
	files, err := h.ExpandMdDir(dir, nil, nil, false)
	if err != nil {
		t.Fatalf("ExpandMdDir failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
}

func TestExpandMdDirRecursive(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.md"), "a")
	writeTestFile(t, filepath.Join(dir, "nested", "d.md"), "d")

	h := NewCollectionHandler()
	files, err := h.ExpandMdDir(dir, nil, nil, true)
	if err != nil {
		t.Fatalf("ExpandMdDir failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
}

func TestExpandMdDirMaxFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.md"), "a")
	writeTestFile(t, filepath.Join(dir, "b.md"), "b")
	writeTestFile(t, filepath.Join(dir, "c.md"), "c")

	max := 2
	h := NewCollectionHandler()
	files, err := h.ExpandMdDir(dir, &max, nil, false)
	if err != nil {
		t.Fatalf("ExpandMdDir failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected max_files=2 to cap result, got %d", len(files))
	}
}

func TestExpandMdDirExclude(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "keep.md"), "k")
	writeTestFile(t, filepath.Join(dir, "skip.md"), "s")

	h := NewCollectionHandler()
	files, err := h.ExpandMdDir(dir, nil, []string{"skip"}, false)
	if err != nil {
		t.Fatalf("ExpandMdDir failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected exclude to drop 1 file, got %d: %v", len(files), files)
	}
}

func TestExpandGlob(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.go"), "a")
	writeTestFile(t, filepath.Join(dir, "b.go"), "b")
	writeTestFile(t, filepath.Join(dir, "c.txt"), "c")

	h := NewCollectionHandler()
	files, err := h.ExpandGlob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatalf("ExpandGlob failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(files), files)
	}
}

func TestCollectionHandlerLoadAlwaysFails(t *testing.T) {
	h := NewCollectionHandler()
	artifact, err := h.Parse(nil, "md_dir:/tmp", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := h.Load(nil, artifact); err == nil {
		t.Fatalf("expected Load to fail for a collection artifact")
	}
}
