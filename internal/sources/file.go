// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vladisov/ctx/internal/blobstore"
	"github.com/vladisov/ctx/internal/ctxcore"
)

// FileHandler ingests local files, optionally restricted to a line range
// either passed via Options or encoded in the URI as a "#L<start>-<end>"
// suffix (1-indexed, inclusive, matching common code-host permalinks).
type FileHandler struct{}

// NewFileHandler returns the handler for bare paths and "file:" URIs.
func NewFileHandler() *FileHandler { return &FileHandler{} }

func (h *FileHandler) CanHandle(uri string) bool {
	if strings.HasPrefix(uri, "file:") {
		return true
	}
	return !strings.Contains(uri, ":")
}

func (h *FileHandler) Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error) {
	path := strings.TrimPrefix(uri, "file:")

	var start, end *int
	if idx := strings.Index(path, "#L"); idx >= 0 {
		rangeStr := path[idx+2:]
		path = path[:idx]
		s, e, err := parseLineRange(rangeStr)
		if err != nil {
			return ctxcore.Artifact{}, err
		}
		start, end = &s, &e
	} else if opts.RangeStart != nil && opts.RangeEnd != nil {
		start, end = opts.RangeStart, opts.RangeEnd
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ctxcore.Artifact{}, fmt.Errorf("resolve absolute path for %s: %w", path, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return ctxcore.Artifact{}, &ctxcore.LoadFailedError{SourceURI: uri, Cause: err}
	}

	hash := blobstore.Hash(content)

	var artifactType ctxcore.ArtifactType
	switch {
	case start != nil && end != nil:
		artifactType = ctxcore.FileRange(absPath, *start, *end)
	case strings.EqualFold(filepath.Ext(absPath), ".md"):
		artifactType = ctxcore.Markdown(absPath)
	default:
		artifactType = ctxcore.File(absPath)
	}

	meta := ctxcore.ArtifactMetadata{SizeBytes: int64(len(content)), Extra: map[string]any{}}
	return ctxcore.NewArtifact(artifactType, uri).WithHash(hash).WithMetadata(meta), nil
}

func (h *FileHandler) Load(ctx context.Context, artifact ctxcore.Artifact) (string, error) {
	switch artifact.Type.Kind {
	case ctxcore.KindFile, ctxcore.KindMarkdown:
		content, err := os.ReadFile(artifact.Type.Path)
		if err != nil {
			return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
		}
		return string(content), nil

	case ctxcore.KindFileRange:
		content, err := os.ReadFile(artifact.Type.Path)
		if err != nil {
			return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
		}
		lines := strings.Split(string(content), "\n")
		start, end := artifact.Type.Start, artifact.Type.End
		if start < 0 || end >= len(lines) || start > end {
			return "", &ctxcore.LoadFailedError{
				SourceURI: artifact.SourceURI,
				Cause:     fmt.Errorf("line range %d-%d out of bounds for %s (%d lines)", start, end, artifact.Type.Path, len(lines)),
			}
		}
		return strings.Join(lines[start:end+1], "\n"), nil

	default:
		return "", fmt.Errorf("sources: FileHandler cannot load artifact type %q", artifact.Type.Kind)
	}
}

// parseLineRange parses "L10-L20" (or "10-20") into 0-indexed, inclusive bounds.
func parseLineRange(spec string) (int, int, error) {
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, ctxcore.NewInvalidSourceURI(spec, "expected format L<start>-L<end>")
	}

	start, err := strconv.Atoi(strings.TrimPrefix(startStr, "L"))
	if err != nil {
		return 0, 0, ctxcore.NewInvalidSourceURI(spec, "invalid start line")
	}
	end, err := strconv.Atoi(strings.TrimPrefix(endStr, "L"))
	if err != nil {
		return 0, 0, ctxcore.NewInvalidSourceURI(spec, "invalid end line")
	}
	if start > end {
		return 0, 0, ctxcore.NewInvalidSourceURI(spec, "start line must be <= end line")
	}
	if start > 0 {
		start--
	}
	if end > 0 {
		end--
	}
	return start, end, nil
}
