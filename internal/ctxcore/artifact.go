// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ctxcore holds the data model shared by every other package in
// this module: packs, artifacts, pack items, snapshots, and the error
// taxonomy. Nothing here performs I/O.
package ctxcore

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is a unit of context with a type, a source reference, and
// (once reified) content addressed by ContentHash.
type Artifact struct {
	ID            string
	Type          ArtifactType
	SourceURI     string
	ContentHash   *string
	Metadata      ArtifactMetadata
	TokenEstimate int
	CreatedAt     time.Time
}

// ArtifactMetadata carries size/mime information plus handler-specific extras.
type ArtifactMetadata struct {
	SizeBytes int64
	MimeType  *string
	Extra     map[string]any
}

// NewArtifact builds an Artifact with a fresh ID and the current timestamp.
func NewArtifact(artifactType ArtifactType, sourceURI string) Artifact {
	return Artifact{
		ID:        uuid.NewString(),
		Type:      artifactType,
		SourceURI: sourceURI,
		Metadata:  ArtifactMetadata{Extra: map[string]any{}},
		CreatedAt: time.Now().UTC(),
	}
}

// WithHash returns a with ContentHash set to hash.
func (a Artifact) WithHash(hash string) Artifact {
	a.ContentHash = &hash
	return a
}

// WithMetadata returns a with Metadata replaced.
func (a Artifact) WithMetadata(meta ArtifactMetadata) Artifact {
	a.Metadata = meta
	return a
}

// ArtifactTypeKind names the tagged variant of an ArtifactType.
type ArtifactTypeKind string

const (
	KindFile            ArtifactTypeKind = "file"
	KindFileRange       ArtifactTypeKind = "file_range"
	KindMarkdown        ArtifactTypeKind = "markdown"
	KindCollectionMdDir ArtifactTypeKind = "collection_md_dir"
	KindCollectionGlob  ArtifactTypeKind = "collection_glob"
	KindText            ArtifactTypeKind = "text"
	KindGitDiff         ArtifactTypeKind = "git_diff"
	KindURL             ArtifactTypeKind = "url"
)

// ArtifactType is a closed tagged union. Exactly one of the embedded value
// types is meaningful, selected by Kind. Modeled as a struct of optional
// pointers rather than an interface so that JSON (de)serialization is a
// straightforward flattened tagged union (see MarshalJSON/UnmarshalJSON).
type ArtifactType struct {
	Kind ArtifactTypeKind

	// File / Markdown
	Path string

	// FileRange (0-indexed internally, inclusive)
	Start int
	End   int

	// CollectionMdDir
	MaxFiles  *int
	Exclude   []string
	Recursive bool

	// CollectionGlob
	Pattern string

	// Text
	Content string

	// GitDiff
	Base string
	Head *string

	// URL
	URL   string
	Title *string
}

// File constructs a File artifact type.
func File(path string) ArtifactType { return ArtifactType{Kind: KindFile, Path: path} }

// FileRange constructs a FileRange artifact type. start/end are 0-indexed inclusive.
func FileRange(path string, start, end int) ArtifactType {
	return ArtifactType{Kind: KindFileRange, Path: path, Start: start, End: end}
}

// Markdown constructs a Markdown artifact type.
func Markdown(path string) ArtifactType { return ArtifactType{Kind: KindMarkdown, Path: path} }

// CollectionMdDir constructs a lazy markdown-directory collection.
func CollectionMdDir(path string, maxFiles *int, exclude []string, recursive bool) ArtifactType {
	return ArtifactType{
		Kind:      KindCollectionMdDir,
		Path:      path,
		MaxFiles:  maxFiles,
		Exclude:   exclude,
		Recursive: recursive,
	}
}

// CollectionGlob constructs a lazy glob collection.
func CollectionGlob(pattern string) ArtifactType {
	return ArtifactType{Kind: KindCollectionGlob, Pattern: pattern}
}

// Text constructs an inline literal artifact type.
func Text(content string) ArtifactType { return ArtifactType{Kind: KindText, Content: content} }

// GitDiffType constructs a git diff artifact type.
func GitDiffType(base string, head *string) ArtifactType {
	return ArtifactType{Kind: KindGitDiff, Base: base, Head: head}
}

// URLType constructs a remote-document artifact type.
func URLType(url string, title *string) ArtifactType {
	return ArtifactType{Kind: KindURL, URL: url, Title: title}
}

// IsCollection reports whether t stands for a set of concrete artifacts
// materialized at render time rather than a single loadable document.
func (t ArtifactType) IsCollection() bool {
	return t.Kind == KindCollectionMdDir || t.Kind == KindCollectionGlob
}
