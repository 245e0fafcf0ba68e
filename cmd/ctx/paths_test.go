// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"path/filepath"
	"testing"
)

func TestDataRoot_Default(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CTX_DATA_DIR", "")

	root, err := dataRoot("")
	if err != nil {
		t.Fatalf("dataRoot() error = %v", err)
	}

	want := filepath.Join(home, ".ctx", "data")
	if root != want {
		t.Fatalf("dataRoot() = %q, want %q", root, want)
	}
}

func TestDataRoot_EnvOverride(t *testing.T) {
	t.Setenv("CTX_DATA_DIR", "/tmp/custom-ctx")

	root, err := dataRoot("")
	if err != nil {
		t.Fatalf("dataRoot() error = %v", err)
	}
	if root != "/tmp/custom-ctx" {
		t.Fatalf("dataRoot() = %q, want %q", root, "/tmp/custom-ctx")
	}
}

func TestDataRoot_ExplicitOverrideWinsOverEnv(t *testing.T) {
	t.Setenv("CTX_DATA_DIR", "/tmp/custom-ctx")

	root, err := dataRoot("/tmp/explicit-ctx")
	if err != nil {
		t.Fatalf("dataRoot() error = %v", err)
	}
	if root != "/tmp/explicit-ctx" {
		t.Fatalf("dataRoot() = %q, want %q", root, "/tmp/explicit-ctx")
	}
}

func TestDbPathFor_CreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "data")

	dbPath, blobRoot, err := dbPathFor(root)
	if err != nil {
		t.Fatalf("dbPathFor() error = %v", err)
	}
	if dbPath != filepath.Join(root, "state.db") {
		t.Fatalf("dbPathFor() dbPath = %q", dbPath)
	}
	if blobRoot != filepath.Join(root, "blobs") {
		t.Fatalf("dbPathFor() blobRoot = %q", blobRoot)
	}
	if info, err := filepath.Abs(root); err != nil || info == "" {
		t.Fatalf("expected root to resolve, got err=%v", err)
	}
}
