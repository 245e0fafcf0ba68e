// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/vladisov/ctx/internal/ctxcore"
	"github.com/vladisov/ctx/internal/ctxerrors"
	"github.com/vladisov/ctx/internal/ui"
)

func runSnapshot(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		ctxerrors.FatalError(ctxerrors.NewUserError(
			"Missing snapshot subcommand",
			"Expected one of: create, show, list",
			"Run 'ctx snapshot create <pack>' to get started",
			nil,
		), globals.JSON)
	}

	sub := args[0]
	rest := args[1:]

	switch sub {
	case "create":
		runSnapshotCreate(rest, globals)
	case "show":
		runSnapshotShow(rest, globals)
	case "list":
		runSnapshotList(rest, globals)
	default:
		ctxerrors.FatalError(ctxerrors.NewUserError(
			fmt.Sprintf("Unknown snapshot subcommand %q", sub),
			"Expected one of: create, show, list",
			"",
			nil,
		), globals.JSON)
	}
}

func runSnapshotCreate(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("snapshot create", flag.ContinueOnError)
	label := fs.String("label", "", "Optional human-readable label for this snapshot")
	if err := fs.Parse(args); err != nil {
		ctxerrors.FatalError(ctxerrors.NewUserError("Invalid flags", err.Error(), "", err), globals.JSON)
	}
	if fs.NArg() != 1 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing pack name or id", "Usage: ctx snapshot create <name-or-id> [--label L]", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	result, err := a.renderer.RenderPack(context.Background(), fs.Arg(0), nil)
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	var labelPtr *string
	if *label != "" {
		labelPtr = label
	}

	snapshot := ctxcore.NewSnapshot(result.RenderHash, result.PayloadHash, labelPtr)
	if err := a.store.CreateSnapshot(snapshot); err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(snapshotJSON(snapshot))
		return
	}
	fmt.Printf("Created snapshot %s\n", snapshot.ID)
	fmt.Printf("  %s %s\n", ui.Label("render_hash:"), snapshot.RenderHash)
	fmt.Printf("  %s %s\n", ui.Label("payload_hash:"), snapshot.PayloadHash)
}

func runSnapshotShow(args []string, globals GlobalFlags) {
	if len(args) != 1 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing snapshot id", "Usage: ctx snapshot show <snapshot-id>", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	snapshot, err := a.store.GetSnapshot(args[0])
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(snapshotJSON(snapshot))
		return
	}

	ui.Header(snapshot.ID)
	if snapshot.Label != nil {
		fmt.Printf("  %s %s\n", ui.Label("label:"), *snapshot.Label)
	}
	fmt.Printf("  %s %s\n", ui.Label("render_hash:"), snapshot.RenderHash)
	fmt.Printf("  %s %s\n", ui.Label("payload_hash:"), snapshot.PayloadHash)
	fmt.Printf("  %s %s\n", ui.Label("created_at:"), snapshot.CreatedAt.Format("2006-01-02T15:04:05Z"))
}

func runSnapshotList(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("snapshot list", flag.ContinueOnError)
	renderHash := fs.String("render-hash", "", "Only show snapshots matching this render_hash")
	if err := fs.Parse(args); err != nil {
		ctxerrors.FatalError(ctxerrors.NewUserError("Invalid flags", err.Error(), "", err), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	snapshots, err := a.store.ListSnapshots()
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if *renderHash != "" {
		filtered := make([]ctxcore.Snapshot, 0, len(snapshots))
		for _, s := range snapshots {
			if s.RenderHash == *renderHash {
				filtered = append(filtered, s)
			}
		}
		snapshots = filtered
	}

	if globals.JSON {
		out := make([]snapshotOutput, 0, len(snapshots))
		for _, s := range snapshots {
			out = append(out, snapshotJSON(s))
		}
		printJSON(out)
		return
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots yet.")
		return
	}
	ui.Header("Snapshots")
	for _, s := range snapshots {
		fmt.Printf("  %s  render=%s  payload=%s\n", s.ID, s.RenderHash, s.PayloadHash)
	}
}

type snapshotOutput struct {
	ID          string  `json:"id"`
	Label       *string `json:"label,omitempty"`
	RenderHash  string  `json:"render_hash"`
	PayloadHash string  `json:"payload_hash"`
	CreatedAt   string  `json:"created_at"`
}

func snapshotJSON(s ctxcore.Snapshot) snapshotOutput {
	return snapshotOutput{
		ID:          s.ID,
		Label:       s.Label,
		RenderHash:  s.RenderHash,
		PayloadHash: s.PayloadHash,
		CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
