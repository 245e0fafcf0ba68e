// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import "testing"

func TestParseManifest(t *testing.T) {
	data := []byte(`
items:
  - uri: "file:README.md"
    priority: 10
  - uri: "md_dir:docs"
    max_files: 20
    recursive: true
`)

	m, err := parseManifest(data)
	if err != nil {
		t.Fatalf("parseManifest() error = %v", err)
	}
	if len(m.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(m.Items))
	}
	if m.Items[0].URI != "file:README.md" || m.Items[0].Priority != 10 {
		t.Fatalf("unexpected first item: %+v", m.Items[0])
	}
	if m.Items[1].MaxFiles != 20 || !m.Items[1].Recursive {
		t.Fatalf("unexpected second item: %+v", m.Items[1])
	}
}

func TestParseManifest_EmptyItemsRejected(t *testing.T) {
	if _, err := parseManifest([]byte(`items: []`)); err == nil {
		t.Fatalf("expected error for empty items list")
	}
}

func TestParseManifest_MissingURIRejected(t *testing.T) {
	data := []byte(`
items:
  - priority: 1
`)
	if _, err := parseManifest(data); err == nil {
		t.Fatalf("expected error for item missing uri")
	}
}

func TestParseManifest_InvalidYAMLRejected(t *testing.T) {
	if _, err := parseManifest([]byte("not: [valid: yaml")); err == nil {
		t.Fatalf("expected error for invalid yaml")
	}
}
