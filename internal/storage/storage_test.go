// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/vladisov/ctx/internal/ctxcore"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(Config{
		DBPath:   filepath.Join(t.TempDir(), "state.db"),
		BlobRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetPack(t *testing.T) {
	s := newTestStorage(t)

	pack := ctxcore.NewPack("alpha", ctxcore.DefaultRenderPolicy())
	if err := s.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack failed: %v", err)
	}

	got, err := s.GetPack("alpha")
	if err != nil {
		t.Fatalf("GetPack by name failed: %v", err)
	}
	if got.ID != pack.ID {
		t.Fatalf("got pack id %s, want %s", got.ID, pack.ID)
	}

	got, err = s.GetPack(pack.ID)
	if err != nil {
		t.Fatalf("GetPack by id failed: %v", err)
	}
	if got.Name != "alpha" {
		t.Fatalf("got pack name %s, want alpha", got.Name)
	}
}

func TestCreatePackDuplicateName(t *testing.T) {
	s := newTestStorage(t)

	pack := ctxcore.NewPack("dup", ctxcore.DefaultRenderPolicy())
	if err := s.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack failed: %v", err)
	}

	other := ctxcore.NewPack("dup", ctxcore.DefaultRenderPolicy())
	err := s.CreatePack(other)
	if !errors.Is(err, ctxcore.ErrPackAlreadyExists) {
		t.Fatalf("expected ErrPackAlreadyExists, got %v", err)
	}
}

func TestGetPackNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetPack("does-not-exist")
	if !errors.Is(err, ctxcore.ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
}

func TestListPacksOrderedByName(t *testing.T) {
	s := newTestStorage(t)

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := s.CreatePack(ctxcore.NewPack(name, ctxcore.DefaultRenderPolicy())); err != nil {
			t.Fatalf("CreatePack(%s) failed: %v", name, err)
		}
	}

	packs, err := s.ListPacks()
	if err != nil {
		t.Fatalf("ListPacks failed: %v", err)
	}
	if len(packs) != 3 {
		t.Fatalf("expected 3 packs, got %d", len(packs))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if packs[i].Name != want {
			t.Fatalf("packs[%d] = %s, want %s", i, packs[i].Name, want)
		}
	}
}

func TestAddArtifactToPackWithContentAndOrdering(t *testing.T) {
	s := newTestStorage(t)

	pack := ctxcore.NewPack("ordered", ctxcore.DefaultRenderPolicy())
	if err := s.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack failed: %v", err)
	}

	low := ctxcore.NewArtifact(ctxcore.Text("low priority"), "text:low priority")
	high := ctxcore.NewArtifact(ctxcore.Text("high priority"), "text:high priority")

	if _, err := s.AddArtifactToPackWithContent(pack.ID, low, []byte("low priority"), 1); err != nil {
		t.Fatalf("add low-priority artifact failed: %v", err)
	}
	if _, err := s.AddArtifactToPackWithContent(pack.ID, high, []byte("high priority"), 10); err != nil {
		t.Fatalf("add high-priority artifact failed: %v", err)
	}

	items, err := s.GetPackArtifacts(pack.ID)
	if err != nil {
		t.Fatalf("GetPackArtifacts failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Priority != 10 || items[1].Priority != 1 {
		t.Fatalf("expected priority DESC order, got %d then %d", items[0].Priority, items[1].Priority)
	}
}

func TestRemoveArtifactFromPackNotFound(t *testing.T) {
	s := newTestStorage(t)

	pack := ctxcore.NewPack("empty", ctxcore.DefaultRenderPolicy())
	if err := s.CreatePack(pack); err != nil {
		t.Fatalf("CreatePack failed: %v", err)
	}

	err := s.RemoveArtifactFromPack(pack.ID, "missing-artifact")
	if !errors.Is(err, ctxcore.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	label := "v1"
	snap := ctxcore.NewSnapshot("renderhash123", "payloadhash456", &label)
	if err := s.CreateSnapshot(snap); err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}

	got, err := s.GetSnapshot(snap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if got.RenderHash != snap.RenderHash || got.PayloadHash != snap.PayloadHash {
		t.Fatalf("snapshot mismatch: got %+v, want %+v", got, snap)
	}

	all, err := s.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(all))
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	s := newTestStorage(t)
	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("second EnsureSchema call failed: %v", err)
	}
}
