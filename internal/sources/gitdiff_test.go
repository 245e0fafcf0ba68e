// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"testing"

	"github.com/vladisov/ctx/internal/ctxcore"
)

type fakeGitRunner struct {
	lastArgs []string
	output   string
	err      error
}

func (f *fakeGitRunner) Run(ctx context.Context, args ...string) (string, error) {
	f.lastArgs = args
	return f.output, f.err
}

func (f *fakeGitRunner) RepoPath() string { return "/repo" }

func TestParseDiffSpecDefaults(t *testing.T) {
	base, head := parseDiffSpec("")
	if base != "HEAD" || head != nil {
		t.Fatalf("got base=%q head=%v, want base=HEAD head=nil", base, head)
	}
}

func TestParseDiffSpecBaseOnly(t *testing.T) {
	base, head := parseDiffSpec("--base=main")
	if base != "main" || head != nil {
		t.Fatalf("got base=%q head=%v, want base=main head=nil", base, head)
	}
}

func TestParseDiffSpecBaseAndHead(t *testing.T) {
	base, head := parseDiffSpec("--base=main --head=feature-branch")
	if base != "main" || head == nil || *head != "feature-branch" {
		t.Fatalf("got base=%q head=%v", base, head)
	}
}

func TestGitDiffHandlerParse(t *testing.T) {
	h := NewGitDiffHandler(nil)
	artifact, err := h.Parse(context.Background(), "git:diff --base=main --head=HEAD", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if artifact.Type.Kind != ctxcore.KindGitDiff {
		t.Fatalf("expected KindGitDiff, got %s", artifact.Type.Kind)
	}
	if artifact.Type.Base != "main" || artifact.Type.Head == nil || *artifact.Type.Head != "HEAD" {
		t.Fatalf("unexpected artifact type: %+v", artifact.Type)
	}
}

func TestGitDiffHandlerLoad(t *testing.T) {
	fake := &fakeGitRunner{output: "diff --git a/x b/x\n"}
	h := NewGitDiffHandler(fake)

	artifact, err := h.Parse(context.Background(), "git:diff --base=main", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out, err := h.Load(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out != fake.output {
		t.Fatalf("got %q, want %q", out, fake.output)
	}
	if len(fake.lastArgs) != 2 || fake.lastArgs[0] != "diff" || fake.lastArgs[1] != "main" {
		t.Fatalf("unexpected git args: %v", fake.lastArgs)
	}
}
