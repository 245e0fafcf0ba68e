// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vladisov/ctx/internal/ctxcore"
)

func TestFileHandlerParseWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	h := NewFileHandler()
	artifact, err := h.Parse(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if artifact.Type.Kind != ctxcore.KindFile {
		t.Fatalf("expected KindFile, got %s", artifact.Type.Kind)
	}
	if artifact.ContentHash == nil {
		t.Fatalf("expected content hash to be set")
	}
}

func TestFileHandlerParseMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readme.md")
	if err := os.WriteFile(path, []byte("# Title"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	h := NewFileHandler()
	artifact, err := h.Parse(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if artifact.Type.Kind != ctxcore.KindMarkdown {
		t.Fatalf("expected KindMarkdown, got %s", artifact.Type.Kind)
	}
}

func TestFileHandlerParseLineRangeSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.go")
	content := "line1\nline2\nline3\nline4\nline5"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	h := NewFileHandler()
	artifact, err := h.Parse(context.Background(), path+"#L2-L4", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if artifact.Type.Kind != ctxcore.KindFileRange {
		t.Fatalf("expected KindFileRange, got %s", artifact.Type.Kind)
	}
	if artifact.Type.Start != 1 || artifact.Type.End != 3 {
		t.Fatalf("expected 0-indexed range [1,3], got [%d,%d]", artifact.Type.Start, artifact.Type.End)
	}

	loaded, err := h.Load(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != "line2\nline3\nline4" {
		t.Fatalf("unexpected loaded content: %q", loaded)
	}
}

func TestFileHandlerLoadOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.txt")
	if err := os.WriteFile(path, []byte("one\ntwo"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	artifact := ctxcore.NewArtifact(ctxcore.FileRange(path, 0, 10), path)
	h := NewFileHandler()
	if _, err := h.Load(context.Background(), artifact); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
}

func TestFileHandlerCanHandle(t *testing.T) {
	h := NewFileHandler()
	if !h.CanHandle("some/path.go") {
		t.Fatalf("expected bare path to be handled")
	}
	if !h.CanHandle("file:some/path.go") {
		t.Fatalf("expected file: prefix to be handled")
	}
	if h.CanHandle("text:hello") {
		t.Fatalf("text: should not be handled by FileHandler")
	}
	if h.CanHandle("url:https://example.com") {
		t.Fatalf("url: should not be handled by FileHandler")
	}
}
