// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package renderer orchestrates a pack render end to end: fetch a pack's
// items from storage, expand any collections into concrete artifacts,
// load and redact each one, then hand the processed set to the render
// engine for budget enforcement and hashing.
package renderer

import (
	"context"
	"fmt"

	"github.com/vladisov/ctx/internal/blobstore"
	"github.com/vladisov/ctx/internal/ctxcore"
	"github.com/vladisov/ctx/internal/denylist"
	"github.com/vladisov/ctx/internal/redact"
	"github.com/vladisov/ctx/internal/render"
	"github.com/vladisov/ctx/internal/sources"
	"github.com/vladisov/ctx/internal/storage"
	"github.com/vladisov/ctx/internal/tokens"
)

// PackStore is the subset of storage.Storage the renderer needs. Defined
// as an interface so tests can supply a fake without standing up SQLite.
type PackStore interface {
	GetPack(nameOrID string) (ctxcore.Pack, error)
	GetPackArtifacts(packID string) ([]ctxcore.PackItem, error)

	// LoadArtifactContent retrieves an artifact's content straight from
	// the blob store by its recorded content hash, bypassing the source
	// handler. Used as a fallback when the original source has gone
	// missing since the artifact was ingested.
	LoadArtifactContent(artifact ctxcore.Artifact) (string, error)
}

var _ PackStore = (*storage.Storage)(nil)

// Renderer ties the source registry, token estimator, redactor, and
// render engine together against a backing store.
type Renderer struct {
	store     PackStore
	registry  *sources.Registry
	collector *sources.CollectionHandler
	estimator *tokens.Estimator
	redactor  *redact.Redactor
	engine    *render.Engine
	denylist  *denylist.Denylist
}

// New returns a Renderer. denylistCheck may be nil to disable denylist
// enforcement during collection expansion.
func New(store PackStore, registry *sources.Registry, denylistCheck *denylist.Denylist) *Renderer {
	return &Renderer{
		store:     store,
		registry:  registry,
		collector: sources.NewCollectionHandler(),
		estimator: tokens.NewEstimator(),
		redactor:  redact.New(),
		engine:    render.New(),
		denylist:  denylistCheck,
	}
}

// RenderPack renders a single pack, identified by name or id. If
// policyOverride is non-nil it replaces the pack's stored render policy
// for this render only.
func (r *Renderer) RenderPack(ctx context.Context, packNameOrID string, policyOverride *ctxcore.RenderPolicy) (render.Result, error) {
	pack, err := r.store.GetPack(packNameOrID)
	if err != nil {
		return render.Result{}, err
	}

	policy := pack.Policies
	if policyOverride != nil {
		policy = *policyOverride
	}

	items, err := r.store.GetPackArtifacts(pack.ID)
	if err != nil {
		return render.Result{}, err
	}

	var processed []render.ProcessedArtifact
	var hits []render.RedactionHit
	var warnings []string

	for _, item := range items {
		expanded, expandWarnings, err := r.expandArtifact(ctx, item.Artifact)
		if err != nil {
			return render.Result{}, err
		}
		warnings = append(warnings, expandWarnings...)

		for _, artifact := range expanded {
			select {
			case <-ctx.Done():
				return render.Result{}, ctx.Err()
			default:
			}

			content, err := r.registry.Load(ctx, artifact)
			if err != nil {
				if artifact.ContentHash == nil {
					return render.Result{}, err
				}
				blobContent, blobErr := r.store.LoadArtifactContent(artifact)
				if blobErr != nil {
					return render.Result{}, err
				}
				warnings = append(warnings, fmt.Sprintf("%s: source unavailable (%v), served from blob store", artifact.ID, err))
				content = blobContent
			}

			redactedContent, summaries := r.redactor.Redact(content)
			hits = append(hits, render.HitsFromSummaries(artifact.ID, summaries)...)

			tokenCount := r.estimator.Estimate(redactedContent)

			processed = append(processed, render.ProcessedArtifact{
				ArtifactID:  artifact.ID,
				SourceURI:   artifact.SourceURI,
				ContentHash: artifact.ContentHash,
				Content:     redactedContent,
				TokenCount:  tokenCount,
				Redacted:    len(summaries) > 0,
			})
		}
	}

	return r.engine.Render(processed, policy.BudgetTokens, hits, warnings), nil
}

// RenderRequest renders each pack in packIDs independently, then merges
// the results: budgets and token estimates sum, included/excluded/
// redaction lists concatenate in pack order, and the payloads join with
// a blank line between packs. The merged render_hash and payload_hash
// are recomputed over the joined payload, since the merge itself is part
// of what must hash deterministically.
func (r *Renderer) RenderRequest(ctx context.Context, packIDs []string) (render.Result, error) {
	combined := render.Result{}

	for _, packID := range packIDs {
		result, err := r.RenderPack(ctx, packID, nil)
		if err != nil {
			return render.Result{}, fmt.Errorf("renderer: render pack %q: %w", packID, err)
		}

		combined.BudgetTokens += result.BudgetTokens
		combined.TokenEstimate += result.TokenEstimate
		combined.Included = append(combined.Included, result.Included...)
		combined.Excluded = append(combined.Excluded, result.Excluded...)
		combined.Redactions = append(combined.Redactions, result.Redactions...)
		combined.Warnings = append(combined.Warnings, result.Warnings...)

		if result.Payload != "" {
			if combined.Payload != "" {
				combined.Payload += "\n\n"
			}
			combined.Payload += result.Payload
		}
	}

	combined.RenderHash = blobstore.Hash([]byte(combined.Payload))
	combined.PayloadHash = combined.RenderHash

	return combined, nil
}

// expandArtifact turns a collection artifact into its concrete member
// artifacts, parsing each one through the source registry. Non-collection
// artifacts pass through unchanged. Members whose path is denylisted are
// dropped with a warning rather than aborting the whole render: a single
// secret file under a scanned directory shouldn't take the rest of the
// pack down with it.
func (r *Renderer) expandArtifact(ctx context.Context, artifact ctxcore.Artifact) ([]ctxcore.Artifact, []string, error) {
	if !artifact.Type.IsCollection() {
		return []ctxcore.Artifact{artifact}, nil, nil
	}

	var paths []string
	var err error

	switch artifact.Type.Kind {
	case ctxcore.KindCollectionMdDir:
		paths, err = r.collector.ExpandMdDir(artifact.Type.Path, artifact.Type.MaxFiles, artifact.Type.Exclude, artifact.Type.Recursive)
	case ctxcore.KindCollectionGlob:
		paths, err = r.collector.ExpandGlob(artifact.Type.Pattern)
	default:
		return nil, nil, fmt.Errorf("renderer: unknown collection kind %q", artifact.Type.Kind)
	}
	if err != nil {
		return nil, nil, err
	}

	var expanded []ctxcore.Artifact
	var warnings []string

	for _, p := range paths {
		if r.denylist != nil {
			if pattern, denied := r.denylist.MatchingPattern(p); denied {
				warnings = append(warnings, fmt.Sprintf("skipped %s: denied by pattern %q", p, pattern))
				continue
			}
		}

		member, err := r.registry.Parse(ctx, "file:"+p, sources.Options{})
		if err != nil {
			return nil, nil, err
		}
		expanded = append(expanded, member)
	}

	return expanded, warnings, nil
}
