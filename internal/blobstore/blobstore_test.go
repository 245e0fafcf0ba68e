// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package blobstore

import (
	"errors"
	"os"
	"testing"

	"github.com/vladisov/ctx/internal/ctxcore"
)

func TestStoreRetrieveRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	content := []byte("hello context pack")
	hash, err := s.Store(content)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := s.Retrieve(hash)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("round trip mismatch: got %q want %q", got, content)
	}
}

func TestStoreIsDeterministic(t *testing.T) {
	s := New(t.TempDir())

	content := []byte("same bytes twice")
	h1, err := s.Store(content)
	if err != nil {
		t.Fatalf("first Store failed: %v", err)
	}
	h2, err := s.Store(content)
	if err != nil {
		t.Fatalf("second Store failed: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable across writes: %s != %s", h1, h2)
	}
}

func TestExists(t *testing.T) {
	s := New(t.TempDir())

	if s.Exists("0000000000000000000000000000000000000000000000000000000000000000") {
		t.Fatalf("Exists reported true for content never stored")
	}

	hash, err := s.Store([]byte("present"))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !s.Exists(hash) {
		t.Fatalf("Exists reported false for content just stored")
	}
}

func TestRetrieveMissing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Retrieve("deadbeef")
	var missing *ctxcore.BlobMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected BlobMissingError, got %v", err)
	}
}

func TestRetrieveCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	hash, err := s.Store([]byte("original content"))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	path := s.blobPath(hash)
	if err := os.WriteFile(path, []byte("tampered content"), 0o644); err != nil {
		t.Fatalf("tampering with blob failed: %v", err)
	}

	_, err = s.Retrieve(hash)
	var corrupt *ctxcore.BlobCorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected BlobCorruptError, got %v", err)
	}
}
