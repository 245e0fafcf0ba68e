// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"

	"github.com/vladisov/ctx/internal/ctxerrors"
)

// dataRoot resolves the directory ctx keeps its state database and blob
// store under, with precedence: --db/explicit override > CTX_DATA_DIR >
// ~/.ctx/data.
func dataRoot(override string) (string, error) {
	if override != "" {
		return absPath(override)
	}
	if envDir := os.Getenv("CTX_DATA_DIR"); envDir != "" {
		return absPath(envDir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", ctxerrors.NewInternalError(
			"Cannot determine home directory",
			"Operating system did not provide a user home directory path",
			"Set CTX_DATA_DIR or pass --db explicitly",
			err,
		)
	}
	return filepath.Join(home, ".ctx", "data"), nil
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ctxerrors.NewUserError(
			"Cannot resolve path",
			"Could not make "+path+" absolute",
			"Check the path and try again",
			err,
		)
	}
	return filepath.Clean(abs), nil
}

// dbPathFor returns the sqlite database file and blob root under a data
// root directory, creating the root if it does not yet exist.
func dbPathFor(root string) (dbPath, blobRoot string, err error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", "", ctxerrors.NewPermissionError(
			"Cannot create data directory",
			"Failed to create "+root,
			"Check filesystem permissions or choose a different --db location",
			err,
		)
	}
	return filepath.Join(root, "state.db"), filepath.Join(root, "blobs"), nil
}
