// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vladisov/ctx/internal/ctxcore"
)

// CollectionHandler ingests lazily-expanded groups of artifacts: a
// directory of markdown files, or a glob pattern. Collections are never
// loaded directly; Expand turns one into a list of concrete file paths
// that the renderer then parses individually.
type CollectionHandler struct{}

// NewCollectionHandler returns the handler for "md_dir:" and "glob:" URIs.
func NewCollectionHandler() *CollectionHandler { return &CollectionHandler{} }

func (h *CollectionHandler) CanHandle(uri string) bool {
	return strings.HasPrefix(uri, "md_dir:") || strings.HasPrefix(uri, "glob:")
}

func (h *CollectionHandler) Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error) {
	mime := "application/x-ctx-collection"

	if path, ok := strings.CutPrefix(uri, "md_dir:"); ok {
		artifactType := ctxcore.CollectionMdDir(path, opts.MaxFiles, opts.Exclude, opts.Recursive)
		meta := ctxcore.ArtifactMetadata{MimeType: &mime, Extra: map[string]any{}}
		return ctxcore.NewArtifact(artifactType, uri).WithMetadata(meta), nil
	}

	if pattern, ok := strings.CutPrefix(uri, "glob:"); ok {
		artifactType := ctxcore.CollectionGlob(pattern)
		meta := ctxcore.ArtifactMetadata{MimeType: &mime, Extra: map[string]any{}}
		return ctxcore.NewArtifact(artifactType, uri).WithMetadata(meta), nil
	}

	return ctxcore.Artifact{}, ctxcore.NewInvalidSourceURI(uri, "expected md_dir: or glob: prefix")
}

// Load always fails: collections must be expanded by the renderer before
// their members are loaded.
func (h *CollectionHandler) Load(ctx context.Context, artifact ctxcore.Artifact) (string, error) {
	return "", fmt.Errorf("sources: collections must be expanded before loading")
}

// ExpandMdDir lists the markdown files under path, applying exclusion
// substrings, recursive descent, and a max-file cap, in that order. The
// result is sorted for determinism.
func (h *CollectionHandler) ExpandMdDir(path string, maxFiles *int, exclude []string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sources: directory does not exist: %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sources: not a directory: %s", path)
	}

	var files []string

	if recursive {
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && isExcluded(p, exclude) {
					return filepath.SkipDir
				}
				return nil
			}
			if isMarkdown(p) && !isExcluded(p, exclude) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("sources: walk %s: %w", path, err)
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("sources: read dir %s: %w", path, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			p := filepath.Join(path, e.Name())
			if isMarkdown(p) && !isExcluded(p, exclude) {
				files = append(files, p)
			}
		}
	}

	sort.Strings(files)

	if maxFiles != nil && len(files) > *maxFiles {
		files = files[:*maxFiles]
	}

	return files, nil
}

// ExpandGlob lists the regular files matching pattern, sorted for
// determinism. Pattern syntax is doublestar, so "**" recurses correctly
// across any number of path segments.
func (h *CollectionHandler) ExpandGlob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("sources: invalid glob pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}

	sort.Strings(files)
	return files, nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

func isExcluded(path string, exclude []string) bool {
	for _, pattern := range exclude {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}
