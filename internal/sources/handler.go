// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sources implements the pluggable source-handler capability set:
// one handler per URI scheme, each able to parse a source URI into an
// artifact and, separately, load that artifact's content at render time.
package sources

import (
	"context"
	"fmt"

	"github.com/vladisov/ctx/internal/ctxcore"
)

// Options carries the ingestion-time parameters a handler may need beyond
// the bare URI: an explicit line range, collection limits, and the
// priority the resulting pack item should receive.
type Options struct {
	RangeStart *int
	RangeEnd   *int
	MaxFiles   *int
	Exclude    []string
	Recursive  bool
	Priority   int64
}

// Handler is the capability set a source scheme must implement. There is
// no shared base type: handlers compose by registration, not inheritance.
type Handler interface {
	// CanHandle reports whether this handler owns uri.
	CanHandle(uri string) bool

	// Parse turns uri into an artifact without necessarily loading its
	// content (collections and URLs defer content to Load).
	Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error)

	// Load reifies an artifact's content. Called at render time, and
	// again whenever a blob-store miss forces a reload from source.
	Load(ctx context.Context, artifact ctxcore.Artifact) (string, error)
}

// Registry dispatches to the first registered handler willing to claim a
// URI. Handlers are tried in registration order.
type Registry struct {
	handlers []Handler
}

// NewRegistry returns a Registry with the built-in handlers registered:
// file, text, collection, git diff, and url, in that order.
func NewRegistry(git GitRunner) *Registry {
	r := &Registry{}
	r.Register(NewFileHandler())
	r.Register(NewTextHandler())
	r.Register(NewCollectionHandler())
	r.Register(NewGitDiffHandler(git))
	r.Register(NewURLHandler())
	return r
}

// Register appends h to the dispatch chain.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Parse dispatches uri to the first handler that claims it.
func (r *Registry) Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error) {
	for _, h := range r.handlers {
		if h.CanHandle(uri) {
			return h.Parse(ctx, uri, opts)
		}
	}
	return ctxcore.Artifact{}, ctxcore.NewInvalidSourceURI(uri, "no handler registered for this scheme")
}

// Load dispatches artifact to the first handler whose CanHandle accepts
// its source URI.
func (r *Registry) Load(ctx context.Context, artifact ctxcore.Artifact) (string, error) {
	for _, h := range r.handlers {
		if h.CanHandle(artifact.SourceURI) {
			return h.Load(ctx, artifact)
		}
	}
	return "", ctxcore.NewInvalidSourceURI(artifact.SourceURI, "no handler registered for this scheme")
}

func wrapLoad(uri string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w", &ctxcore.LoadFailedError{SourceURI: uri, Cause: err})
}
