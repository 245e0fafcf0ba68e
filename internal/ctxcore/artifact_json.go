// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ctxcore

import (
	"encoding/json"
	"fmt"
)

// artifactTypeWire is the on-the-wire shape of ArtifactType: a tagged union
// keyed by "type" with payload fields flattened at the same level (spec.md
// §6, "Artifact type JSON").
type artifactTypeWire struct {
	Type string `json:"type"`

	Path string `json:"path,omitempty"`

	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`

	MaxFiles  *int     `json:"max_files,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
	Recursive bool     `json:"recursive,omitempty"`

	Pattern string `json:"pattern,omitempty"`

	Content string `json:"content,omitempty"`

	Base string  `json:"base,omitempty"`
	Head *string `json:"head,omitempty"`

	URL   string  `json:"url,omitempty"`
	Title *string `json:"title,omitempty"`
}

// MarshalJSON encodes t as a flattened, snake_case tagged union.
func (t ArtifactType) MarshalJSON() ([]byte, error) {
	w := artifactTypeWire{Type: string(t.Kind)}

	switch t.Kind {
	case KindFile, KindMarkdown:
		w.Path = t.Path
	case KindFileRange:
		w.Path = t.Path
		start, end := t.Start+1, t.End+1 // wire format is 1-indexed
		w.Start, w.End = &start, &end
	case KindCollectionMdDir:
		w.Path = t.Path
		w.MaxFiles = t.MaxFiles
		w.Exclude = t.Exclude
		w.Recursive = t.Recursive
	case KindCollectionGlob:
		w.Pattern = t.Pattern
	case KindText:
		w.Content = t.Content
	case KindGitDiff:
		w.Base = t.Base
		w.Head = t.Head
	case KindURL:
		w.URL = t.URL
		w.Title = t.Title
	default:
		return nil, fmt.Errorf("ctxcore: unknown artifact type kind %q", t.Kind)
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes a flattened, snake_case tagged union into t.
func (t *ArtifactType) UnmarshalJSON(data []byte) error {
	var w artifactTypeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	kind := ArtifactTypeKind(w.Type)
	switch kind {
	case KindFile:
		*t = File(w.Path)
	case KindMarkdown:
		*t = Markdown(w.Path)
	case KindFileRange:
		if w.Start == nil || w.End == nil {
			return fmt.Errorf("ctxcore: file_range requires start and end")
		}
		*t = FileRange(w.Path, *w.Start-1, *w.End-1) // wire is 1-indexed
	case KindCollectionMdDir:
		*t = CollectionMdDir(w.Path, w.MaxFiles, w.Exclude, w.Recursive)
	case KindCollectionGlob:
		*t = CollectionGlob(w.Pattern)
	case KindText:
		*t = Text(w.Content)
	case KindGitDiff:
		*t = GitDiffType(w.Base, w.Head)
	case KindURL:
		*t = URLType(w.URL, w.Title)
	default:
		return fmt.Errorf("ctxcore: unknown artifact type %q", w.Type)
	}

	return nil
}
