// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"testing"
)

func TestTextHandlerRoundTrip(t *testing.T) {
	h := NewTextHandler()
	artifact, err := h.Parse(context.Background(), "text:hello world", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	loaded, err := h.Load(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != "hello world" {
		t.Fatalf("got %q, want %q", loaded, "hello world")
	}
}

func TestTextHandlerRejectsWrongPrefix(t *testing.T) {
	h := NewTextHandler()
	if _, err := h.Parse(context.Background(), "file:nope", Options{}); err == nil {
		t.Fatalf("expected error for non text: URI")
	}
}
