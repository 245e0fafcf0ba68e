// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/vladisov/ctx/internal/ctxcore"
	"github.com/vladisov/ctx/internal/sources"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("CTX_DATA_DIR", t.TempDir())

	a, err := newApp(GlobalFlags{})
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestAddArtifactToPack_TextSource(t *testing.T) {
	a := newTestApp(t)

	pack := ctxcore.NewPack("demo", ctxcore.DefaultRenderPolicy())
	if err := a.store.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack() error = %v", err)
	}

	artifactID, err := addArtifactToPack(a, pack.ID, "text:hello world", sources.Options{}, 5)
	if err != nil {
		t.Fatalf("addArtifactToPack() error = %v", err)
	}
	if artifactID == "" {
		t.Fatalf("expected a non-empty artifact id")
	}

	items, err := a.store.GetPackArtifacts(pack.ID)
	if err != nil {
		t.Fatalf("GetPackArtifacts() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Priority != 5 {
		t.Fatalf("expected priority 5, got %d", items[0].Priority)
	}
}

func TestAddArtifactToPack_CollectionIsStoredByReference(t *testing.T) {
	a := newTestApp(t)

	pack := ctxcore.NewPack("collection-demo", ctxcore.DefaultRenderPolicy())
	if err := a.store.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack() error = %v", err)
	}

	dir := t.TempDir()
	artifactID, err := addArtifactToPack(a, pack.ID, "md_dir:"+dir, sources.Options{}, 1)
	if err != nil {
		t.Fatalf("addArtifactToPack() error = %v", err)
	}

	artifact, err := a.store.GetArtifact(artifactID)
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if artifact.ContentHash != nil {
		t.Fatalf("expected a collection artifact to have no content hash, got %v", *artifact.ContentHash)
	}
}

func TestRenderAndSnapshotEndToEnd(t *testing.T) {
	a := newTestApp(t)

	pack := ctxcore.NewPack("render-demo", ctxcore.DefaultRenderPolicy())
	if err := a.store.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack() error = %v", err)
	}
	if _, err := addArtifactToPack(a, pack.ID, "text:some context", sources.Options{}, 10); err != nil {
		t.Fatalf("addArtifactToPack() error = %v", err)
	}

	result, err := a.renderer.RenderPack(context.Background(), pack.ID, nil)
	if err != nil {
		t.Fatalf("RenderPack() error = %v", err)
	}
	if len(result.Included) != 1 {
		t.Fatalf("expected 1 included artifact, got %d", len(result.Included))
	}

	snapshot := ctxcore.NewSnapshot(result.RenderHash, result.PayloadHash, nil)
	if err := a.store.CreateSnapshot(snapshot); err != nil {
		t.Fatalf("CreateSnapshot() error = %v", err)
	}

	fetched, err := a.store.GetSnapshot(snapshot.ID)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if fetched.RenderHash != result.RenderHash {
		t.Fatalf("snapshot render_hash mismatch: got %s, want %s", fetched.RenderHash, result.RenderHash)
	}
}

func TestAddArtifactToPack_DeniesSecretFileAtCreationTime(t *testing.T) {
	a := newTestApp(t)

	pack := ctxcore.NewPack("secrets-demo", ctxcore.DefaultRenderPolicy())
	if err := a.store.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack() error = %v", err)
	}

	dir := t.TempDir()
	envPath := dir + "/.env"
	if err := os.WriteFile(envPath, []byte("SECRET=1"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err := addArtifactToPack(a, pack.ID, "file:"+envPath, sources.Options{}, 1)
	if err == nil {
		t.Fatalf("expected addArtifactToPack to reject a denylisted path")
	}

	var denyErr *ctxcore.DeniedByDenylistError
	if !errors.As(err, &denyErr) {
		t.Fatalf("expected a DeniedByDenylistError, got %T: %v", err, err)
	}

	items, err := a.store.GetPackArtifacts(pack.ID)
	if err != nil {
		t.Fatalf("GetPackArtifacts() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected the denied artifact not to be persisted, got %d item(s)", len(items))
	}
}
