// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"

	"github.com/vladisov/ctx/internal/ctxerrors"
	"github.com/vladisov/ctx/internal/denylist"
	"github.com/vladisov/ctx/internal/renderer"
	"github.com/vladisov/ctx/internal/sources"
	"github.com/vladisov/ctx/internal/storage"
)

// defaultDenylistPatterns blocks common secret-bearing paths from ever
// being ingested into a pack, regardless of which collection they were
// discovered through.
var defaultDenylistPatterns = []string{
	"**/.env",
	"**/.env.*",
	"**/*.key",
	"**/*.pem",
	"**/id_rsa",
	"**/id_ed25519",
	"**/.aws/credentials",
}

// app bundles the storage handle and renderer every subcommand needs.
// Built once per invocation and closed before the process exits.
type app struct {
	store    *storage.Storage
	registry *sources.Registry
	renderer *renderer.Renderer
	denylist *denylist.Denylist
}

func newApp(globals GlobalFlags) (*app, error) {
	root, err := dataRoot(globals.DBPath)
	if err != nil {
		return nil, err
	}
	dbPath, blobRoot, err := dbPathFor(root)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Config{DBPath: dbPath, BlobRoot: blobRoot})
	if err != nil {
		return nil, ctxerrors.NewDatabaseError(
			"Cannot open ctx data store",
			err.Error(),
			"Check that the data directory is writable",
			err,
		)
	}

	var git sources.GitRunner
	if cwd, err := os.Getwd(); err == nil {
		if executor, err := sources.NewGitExecutor(cwd); err == nil {
			git = executor
		}
	}

	registry := sources.NewRegistry(git)
	deny := denylist.New(defaultDenylistPatterns)
	r := renderer.New(store, registry, deny)

	return &app{store: store, registry: registry, renderer: r, denylist: deny}, nil
}

func (a *app) Close() {
	a.store.Close()
}
