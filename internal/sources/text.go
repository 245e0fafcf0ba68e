// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"strings"

	"github.com/vladisov/ctx/internal/blobstore"
	"github.com/vladisov/ctx/internal/ctxcore"
)

// TextHandler ingests inline literal content passed directly in the URI,
// with no filesystem or network access involved.
type TextHandler struct{}

// NewTextHandler returns the handler for "text:" URIs.
func NewTextHandler() *TextHandler { return &TextHandler{} }

func (h *TextHandler) CanHandle(uri string) bool {
	return strings.HasPrefix(uri, "text:")
}

func (h *TextHandler) Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error) {
	content, ok := strings.CutPrefix(uri, "text:")
	if !ok {
		return ctxcore.Artifact{}, ctxcore.NewInvalidSourceURI(uri, "expected text: prefix")
	}

	hash := blobstore.Hash([]byte(content))
	mime := "text/plain"
	meta := ctxcore.ArtifactMetadata{SizeBytes: int64(len(content)), MimeType: &mime, Extra: map[string]any{}}

	return ctxcore.NewArtifact(ctxcore.Text(content), uri).WithHash(hash).WithMetadata(meta), nil
}

func (h *TextHandler) Load(ctx context.Context, artifact ctxcore.Artifact) (string, error) {
	if artifact.Type.Kind != ctxcore.KindText {
		return "", ctxcore.NewInvalidSourceURI(artifact.SourceURI, "expected text artifact type")
	}
	return artifact.Type.Content, nil
}
