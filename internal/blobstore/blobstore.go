// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package blobstore implements content-addressed, immutable storage for
// artifact payloads on the local filesystem, sharded by hash prefix.
package blobstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vladisov/ctx/internal/ctxcore"
	"lukechampine.com/blake3"
)

// Store is a content-addressed blob store rooted at a single directory.
// Blobs are immutable once written: Store is idempotent under concurrent
// identical writes, since the destination path is a pure function of the
// content's hash.
type Store struct {
	root string
}

// New returns a Store rooted at root. The directory is not created until
// the first Store call.
func New(root string) *Store {
	return &Store{root: root}
}

// Hash returns the content-addressing digest of content, as lowercase hex.
func Hash(content []byte) string {
	sum := blake3.Sum256(content)
	return fmt.Sprintf("%x", sum)
}

// Store writes content under its content hash and returns the hash. If a
// blob with the same hash already exists it is left untouched: identical
// content never needs to be written twice.
func (s *Store) Store(content []byte) (string, error) {
	hash := Hash(content)
	path := s.blobPath(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("blobstore: stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir for %s: %w", hash, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: write %s: %w", hash, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("blobstore: rename %s: %w", hash, err)
	}

	return hash, nil
}

// Retrieve reads the blob stored under hash and verifies it rehashes to
// the same digest before returning it.
func (s *Store) Retrieve(hash string) ([]byte, error) {
	path := s.blobPath(hash)

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &ctxcore.BlobMissingError{Hash: hash}
	} else if err != nil {
		return nil, fmt.Errorf("blobstore: read %s: %w", hash, err)
	}

	actual := Hash(content)
	if actual != hash {
		return nil, &ctxcore.BlobCorruptError{Expected: hash, Actual: actual}
	}

	return content, nil
}

// Exists reports whether a blob is present under hash.
func (s *Store) Exists(hash string) bool {
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}

// blobPath shards blobs into two-character prefix directories so that no
// single directory ends up with an unbounded number of entries.
func (s *Store) blobPath(hash string) string {
	prefix := hash
	if len(hash) >= 2 {
		prefix = hash[:2]
	}
	return filepath.Join(s.root, "blake3", prefix, hash)
}
