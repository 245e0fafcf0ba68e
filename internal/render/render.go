// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render implements the deterministic render engine: budget
// enforcement, payload concatenation, and the two fingerprints
// (render_hash, payload_hash) a snapshot is built from. Nothing here
// performs I/O -- artifacts arrive already loaded and redacted.
package render

import (
	"fmt"
	"sort"

	"github.com/vladisov/ctx/internal/blobstore"
	"github.com/vladisov/ctx/internal/redact"
)

// ProcessedArtifact is an artifact with its content already loaded,
// token-counted, and redacted, ready for budget enforcement.
type ProcessedArtifact struct {
	ArtifactID  string
	SourceURI   string
	ContentHash *string
	Content     string
	TokenCount  int
	Redacted    bool
}

// ArtifactSummary is what a render reports about an included artifact.
type ArtifactSummary struct {
	ArtifactID    string `json:"artifact_id"`
	SourceURI     string `json:"source_uri"`
	TokenEstimate int    `json:"token_estimate"`
}

// ExclusionInfo is what a render reports about an artifact it dropped.
type ExclusionInfo struct {
	ArtifactID string `json:"artifact_id"`
	SourceURI  string `json:"source_uri"`
	Reason     string `json:"reason"`
}

// RedactionSummary aggregates redaction hits for one artifact across all
// patterns that matched.
type RedactionSummary struct {
	ArtifactID string   `json:"artifact_id"`
	Types      []string `json:"types"`
	Count      int      `json:"count"`
}

// Result is the full output of a render: what made it in, what didn't
// and why, the redactions applied, and the two fingerprints.
type Result struct {
	BudgetTokens  int
	TokenEstimate int
	Included      []ArtifactSummary
	Excluded      []ExclusionInfo
	Redactions    []RedactionSummary
	Warnings      []string
	RenderHash    string
	PayloadHash   string
	Payload       string
}

// ExclusionReasonOverBudget is the reason recorded when an artifact is
// dropped purely because including it would exceed the token budget.
const ExclusionReasonOverBudget = "over_budget"

// Engine is the stateless render engine. Every method is a pure function
// of its arguments: identical inputs always produce an identical Result.
type Engine struct{}

// New returns the render engine.
func New() *Engine { return &Engine{} }

// RedactionHit is one named-pattern match against one artifact, as
// reported by the redact package.
type RedactionHit struct {
	ArtifactID string
	Name       string
	Count      int
}

// Render applies the budget, concatenates the surviving artifacts in the
// order they were given (the caller is responsible for pre-sorting by
// priority DESC, added_at ASC), and computes both fingerprints.
func (e *Engine) Render(artifacts []ProcessedArtifact, budgetTokens int, hits []RedactionHit, warnings []string) Result {
	included, excluded := e.applyBudget(artifacts, budgetTokens)
	payload := e.concatenatePayload(included)
	renderHash := e.computeRenderHash(included)
	payloadHash := blobstore.Hash([]byte(payload))
	redactions := e.summarizeRedactions(hits)

	tokenEstimate := 0
	includedSummaries := make([]ArtifactSummary, 0, len(included))
	for _, a := range included {
		tokenEstimate += a.TokenCount
		includedSummaries = append(includedSummaries, ArtifactSummary{
			ArtifactID:    a.ArtifactID,
			SourceURI:     a.SourceURI,
			TokenEstimate: a.TokenCount,
		})
	}

	excludedInfo := make([]ExclusionInfo, 0, len(excluded))
	for _, x := range excluded {
		excludedInfo = append(excludedInfo, ExclusionInfo{
			ArtifactID: x.artifact.ArtifactID,
			SourceURI:  x.artifact.SourceURI,
			Reason:     x.reason,
		})
	}

	if warnings == nil {
		warnings = []string{}
	}

	return Result{
		BudgetTokens:  budgetTokens,
		TokenEstimate: tokenEstimate,
		Included:      includedSummaries,
		Excluded:      excludedInfo,
		Redactions:    redactions,
		Warnings:      warnings,
		RenderHash:    renderHash,
		PayloadHash:   payloadHash,
		Payload:       payload,
	}
}

type excludedArtifact struct {
	artifact ProcessedArtifact
	reason   string
}

// applyBudget walks artifacts in the order given and greedily includes
// each one whose token count still fits under the running total: a
// first-fit pass over a pre-sorted list, never a knapsack. Once an
// artifact is rejected for being over budget, later smaller artifacts
// are still tried -- they may still fit.
func (e *Engine) applyBudget(artifacts []ProcessedArtifact, budget int) ([]ProcessedArtifact, []excludedArtifact) {
	included := make([]ProcessedArtifact, 0, len(artifacts))
	var excluded []excludedArtifact
	total := 0

	for _, a := range artifacts {
		if total+a.TokenCount <= budget {
			total += a.TokenCount
			included = append(included, a)
		} else {
			excluded = append(excluded, excludedArtifact{artifact: a, reason: ExclusionReasonOverBudget})
		}
	}

	return included, excluded
}

// concatenatePayload joins included artifacts in order, each preceded by
// a header naming its source.
func (e *Engine) concatenatePayload(artifacts []ProcessedArtifact) string {
	var payload []byte
	for _, a := range artifacts {
		payload = append(payload, fmt.Sprintf("\n--- %s ---\n", a.SourceURI)...)
		payload = append(payload, a.Content...)
		payload = append(payload, '\n')
	}
	return string(payload)
}

// computeRenderHash hashes the identity of the included set -- artifact
// IDs and content hashes, in order -- not the rendered bytes themselves.
// This makes render_hash invariant to content-irrelevant formatting
// decisions elsewhere in the pipeline while still changing whenever the
// included set or its order changes.
func (e *Engine) computeRenderHash(artifacts []ProcessedArtifact) string {
	var buf []byte
	for _, a := range artifacts {
		buf = append(buf, a.ArtifactID...)
		if a.ContentHash != nil {
			buf = append(buf, *a.ContentHash...)
		}
	}
	return blobstore.Hash(buf)
}

// summarizeRedactions groups per-pattern hit counts by artifact. The
// pattern-name list per artifact is sorted for deterministic output,
// since the hits slice may arrive in load order rather than any
// canonical order.
func (e *Engine) summarizeRedactions(hits []RedactionHit) []RedactionSummary {
	type agg struct {
		types map[string]bool
		count int
	}
	byArtifact := map[string]*agg{}
	var order []string

	for _, h := range hits {
		entry, ok := byArtifact[h.ArtifactID]
		if !ok {
			entry = &agg{types: map[string]bool{}}
			byArtifact[h.ArtifactID] = entry
			order = append(order, h.ArtifactID)
		}
		entry.types[h.Name] = true
		entry.count += h.Count
	}

	summaries := make([]RedactionSummary, 0, len(order))
	for _, id := range order {
		entry := byArtifact[id]
		types := make([]string, 0, len(entry.types))
		for t := range entry.types {
			types = append(types, t)
		}
		sort.Strings(types)
		summaries = append(summaries, RedactionSummary{ArtifactID: id, Types: types, Count: entry.count})
	}
	return summaries
}

// HitsFromSummaries converts redact.Summary results for one artifact
// into the RedactionHit shape Render expects.
func HitsFromSummaries(artifactID string, summaries []redact.Summary) []RedactionHit {
	hits := make([]RedactionHit, 0, len(summaries))
	for _, s := range summaries {
		hits = append(hits, RedactionHit{ArtifactID: artifactID, Name: s.Name, Count: s.Count})
	}
	return hits
}
