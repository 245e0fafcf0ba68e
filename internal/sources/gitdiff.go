// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vladisov/ctx/internal/ctxcore"
)

// GitRunner executes git subcommands against a repository. Mirrors the
// teacher's GitExecutor/GitRunner split so tests can substitute a fake.
type GitRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
	RepoPath() string
}

// GitExecutor is the default GitRunner: it shells out to the git binary
// found on PATH, rooted at a discovered repository root.
type GitExecutor struct {
	repoPath string
}

// NewGitExecutor discovers the repository root containing startPath.
func NewGitExecutor(startPath string) (*GitExecutor, error) {
	cmd := exec.Command("git", "-C", startPath, "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("not a git repository: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git not found or not installed: %w", err)
	}

	repoPath := strings.TrimSpace(string(out))
	if repoPath == "" {
		return nil, fmt.Errorf("could not determine git repository root")
	}
	return &GitExecutor{repoPath: repoPath}, nil
}

func (g *GitExecutor) RepoPath() string { return g.repoPath }

// Run executes git with args in the repository root, returning stdout.
func (g *GitExecutor) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git command canceled: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s failed: %s", args[0], msg)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}

	return stdout.String(), nil
}

// GitDiffHandler ingests a diff between two refs, or a ref and the
// working tree, produced by shelling out to git.
type GitDiffHandler struct {
	git GitRunner
}

// NewGitDiffHandler returns the handler for "git:diff" URIs. git may be
// nil if the handler is only ever used for Parse, not Load.
func NewGitDiffHandler(git GitRunner) *GitDiffHandler {
	return &GitDiffHandler{git: git}
}

func (h *GitDiffHandler) CanHandle(uri string) bool {
	return strings.HasPrefix(uri, "git:")
}

func (h *GitDiffHandler) Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error) {
	spec, ok := strings.CutPrefix(uri, "git:diff")
	if !ok {
		return ctxcore.Artifact{}, ctxcore.NewInvalidSourceURI(uri, "expected git:diff [--base=REF] [--head=REF]")
	}

	base, head := parseDiffSpec(strings.TrimSpace(spec))

	mime := "text/x-diff"
	meta := ctxcore.ArtifactMetadata{
		MimeType: &mime,
		Extra:    map[string]any{"base": base, "head": head},
	}

	return ctxcore.NewArtifact(ctxcore.GitDiffType(base, head), uri).WithMetadata(meta), nil
}

func (h *GitDiffHandler) Load(ctx context.Context, artifact ctxcore.Artifact) (string, error) {
	if artifact.Type.Kind != ctxcore.KindGitDiff {
		return "", ctxcore.NewInvalidSourceURI(artifact.SourceURI, "expected git_diff artifact type")
	}
	if h.git == nil {
		return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: fmt.Errorf("no git runner configured")}
	}

	base := artifact.Type.Base
	args := []string{"diff"}
	if artifact.Type.Head != nil {
		args = append(args, fmt.Sprintf("%s..%s", base, *artifact.Type.Head))
	} else {
		args = append(args, base)
	}

	out, err := h.git.Run(ctx, args...)
	if err != nil {
		return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
	}
	return out, nil
}

// parseDiffSpec extracts --base=REF and --head=REF from the remainder of
// a "git:diff" URI. base defaults to HEAD; head, if absent, means "diff
// against the working tree".
func parseDiffSpec(spec string) (string, *string) {
	base := "HEAD"
	var head *string

	for _, part := range strings.Fields(spec) {
		if val, ok := strings.CutPrefix(part, "--base="); ok {
			base = val
		} else if val, ok := strings.CutPrefix(part, "--head="); ok {
			v := val
			head = &v
		}
	}

	return base, head
}
