// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/vladisov/ctx/internal/ctxcore"
	"github.com/vladisov/ctx/internal/ctxerrors"
	"github.com/vladisov/ctx/internal/render"
	"github.com/vladisov/ctx/internal/ui"
)

func runRender(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	budget := fs.Int("budget", 0, "Override the pack's token budget for this render")
	output := fs.StringP("output", "o", "", "Write the rendered payload to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		ctxerrors.FatalError(ctxerrors.NewUserError("Invalid flags", err.Error(), "", err), globals.JSON)
	}
	if fs.NArg() != 1 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing pack name or id", "Usage: ctx render <name-or-id> [--budget N] [-o file]", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	var policyOverride *ctxcore.RenderPolicy
	if *budget > 0 {
		policyOverride = &ctxcore.RenderPolicy{BudgetTokens: *budget, Ordering: ctxcore.OrderingPriorityThenTime}
	}

	result, err := a.renderer.RenderPack(context.Background(), fs.Arg(0), policyOverride)
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result.Payload), 0o644); err != nil {
			ctxerrors.FatalError(ctxerrors.NewPermissionError(
				"Cannot write output file",
				err.Error(),
				"Check that the output path is writable",
				err,
			), globals.JSON)
		}
	}

	if globals.JSON {
		printJSON(renderJSON(result))
		return
	}

	printRenderSummary(result, *output)
}

func printRenderSummary(result render.Result, outputPath string) {
	ui.Header("Render")
	fmt.Printf("  %s %s / %s\n", ui.Label("tokens:"), ui.CountText(result.TokenEstimate), ui.CountText(result.BudgetTokens))
	fmt.Printf("  %s %s\n", ui.Label("included:"), ui.CountText(len(result.Included)))
	fmt.Printf("  %s %s\n", ui.Label("excluded:"), ui.CountText(len(result.Excluded)))
	fmt.Printf("  %s %s\n", ui.Label("render_hash:"), result.RenderHash)
	fmt.Printf("  %s %s\n", ui.Label("payload_hash:"), result.PayloadHash)

	for _, w := range result.Warnings {
		fmt.Printf("  %s %s\n", ui.DimText("warning:"), w)
	}
	for _, r := range result.Redactions {
		fmt.Printf("  %s %s redacted %d match(es): %v\n", ui.DimText("redacted:"), r.ArtifactID, r.Count, r.Types)
	}

	if outputPath != "" {
		fmt.Printf("  %s %s\n", ui.Label("payload written to:"), outputPath)
	} else {
		fmt.Println()
		fmt.Print(result.Payload)
	}
}

type renderOutput struct {
	BudgetTokens  int                       `json:"budget_tokens"`
	TokenEstimate int                       `json:"token_estimate"`
	Included      []render.ArtifactSummary  `json:"included"`
	Excluded      []render.ExclusionInfo    `json:"excluded"`
	Redactions    []render.RedactionSummary `json:"redactions"`
	Warnings      []string                  `json:"warnings"`
	RenderHash    string                    `json:"render_hash"`
	PayloadHash   string                    `json:"payload_hash"`
	Payload       string                    `json:"payload"`
}

func renderJSON(r render.Result) renderOutput {
	return renderOutput{
		BudgetTokens:  r.BudgetTokens,
		TokenEstimate: r.TokenEstimate,
		Included:      r.Included,
		Excluded:      r.Excluded,
		Redactions:    r.Redactions,
		Warnings:      r.Warnings,
		RenderHash:    r.RenderHash,
		PayloadHash:   r.PayloadHash,
		Payload:       r.Payload,
	}
}
