// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/vladisov/ctx/internal/ctxcore"
	"github.com/vladisov/ctx/internal/ctxerrors"
	"github.com/vladisov/ctx/internal/sources"
	"github.com/vladisov/ctx/internal/ui"
)

func runPack(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		ctxerrors.FatalError(ctxerrors.NewUserError(
			"Missing pack subcommand",
			"Expected one of: create, list, show, add, remove, delete, apply",
			"Run 'ctx pack create <name>' to get started",
			nil,
		), globals.JSON)
	}

	sub := args[0]
	rest := args[1:]

	switch sub {
	case "create":
		runPackCreate(rest, globals)
	case "list":
		runPackList(rest, globals)
	case "show":
		runPackShow(rest, globals)
	case "add":
		runPackAdd(rest, globals)
	case "remove":
		runPackRemove(rest, globals)
	case "delete":
		runPackDelete(rest, globals)
	case "apply":
		runPackApply(rest, globals)
	default:
		ctxerrors.FatalError(ctxerrors.NewUserError(
			fmt.Sprintf("Unknown pack subcommand %q", sub),
			"Expected one of: create, list, show, add, remove, delete, apply",
			"",
			nil,
		), globals.JSON)
	}
}

func runPackCreate(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("pack create", flag.ContinueOnError)
	budget := fs.Int("budget", ctxcore.DefaultBudgetTokens, "Token budget for this pack")
	if err := fs.Parse(args); err != nil {
		ctxerrors.FatalError(ctxerrors.NewUserError("Invalid flags", err.Error(), "Run 'ctx pack create --help'", err), globals.JSON)
	}
	if fs.NArg() != 1 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing pack name", "Usage: ctx pack create <name> [--budget N]", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	policy := ctxcore.RenderPolicy{BudgetTokens: *budget, Ordering: ctxcore.OrderingPriorityThenTime}
	pack := ctxcore.NewPack(fs.Arg(0), policy)

	if err := a.store.CreatePack(pack); err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(packJSON(pack))
		return
	}
	fmt.Printf("Created pack %s (%s), budget %d tokens\n", pack.Name, pack.ID, pack.Policies.BudgetTokens)
}

func runPackList(args []string, globals GlobalFlags) {
	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	packs, err := a.store.ListPacks()
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		out := make([]packOutput, 0, len(packs))
		for _, p := range packs {
			out = append(out, packJSON(p))
		}
		printJSON(out)
		return
	}

	if len(packs) == 0 {
		fmt.Println("No packs yet.")
		return
	}
	ui.Header("Packs")
	for _, p := range packs {
		fmt.Printf("  %s  %s  budget=%d\n", p.ID, p.Name, p.Policies.BudgetTokens)
	}
}

func runPackShow(args []string, globals GlobalFlags) {
	if len(args) != 1 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing pack name or id", "Usage: ctx pack show <name-or-id>", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	pack, err := a.store.GetPack(args[0])
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}
	items, err := a.store.GetPackArtifacts(pack.ID)
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(packShowOutput{Pack: packJSON(pack), Items: itemsJSON(items)})
		return
	}

	ui.Header(fmt.Sprintf("%s (%s)", pack.Name, pack.ID))
	fmt.Printf("  %s %d\n", ui.Label("budget:"), pack.Policies.BudgetTokens)
	fmt.Printf("  %s %s\n", ui.Label("items:"), ui.CountText(len(items)))
	for _, item := range items {
		fmt.Printf("    [%d] %s  %s\n", item.Priority, item.Artifact.ID, item.Artifact.SourceURI)
	}
}

func runPackAdd(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("pack add", flag.ContinueOnError)
	priority := fs.Int64("priority", 0, "Priority of this artifact within the pack")
	maxFiles := fs.Int("max-files", 0, "Maximum files for a collection source (0 = unlimited)")
	recursive := fs.Bool("recursive", false, "Recurse into subdirectories for a md_dir: source")
	if err := fs.Parse(args); err != nil {
		ctxerrors.FatalError(ctxerrors.NewUserError("Invalid flags", err.Error(), "", err), globals.JSON)
	}
	if fs.NArg() != 2 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing arguments", "Usage: ctx pack add <name-or-id> <uri> [--priority N]", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	pack, err := a.store.GetPack(fs.Arg(0))
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	opts := sources.Options{Recursive: *recursive}
	if *maxFiles > 0 {
		opts.MaxFiles = maxFiles
	}

	artifactID, err := addArtifactToPack(a, pack.ID, fs.Arg(1), opts, *priority)
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(map[string]string{"artifact_id": artifactID, "pack_id": pack.ID})
		return
	}
	fmt.Printf("Added %s to %s as %s\n", fs.Arg(1), pack.Name, artifactID)
}

// addArtifactToPack parses uri with the registry and, if it resolves to a
// concrete (non-collection) artifact, loads and persists its content.
// Collections are added by reference: they are expanded lazily at render
// time, so no content is stored for the collection artifact itself.
func addArtifactToPack(a *app, packID, uri string, opts sources.Options, priority int64) (string, error) {
	ctx := context.Background()

	artifact, err := a.registry.Parse(ctx, uri, opts)
	if err != nil {
		return "", err
	}

	if path := artifact.Type.Path; path != "" && a.denylist != nil {
		if pattern, denied := a.denylist.MatchingPattern(path); denied {
			return "", &ctxcore.DeniedByDenylistError{Path: path, Pattern: pattern}
		}
	}

	if artifact.Type.IsCollection() {
		if err := a.store.CreateArtifact(artifact); err != nil {
			return "", err
		}
		if err := a.store.AddArtifactToPack(packID, artifact.ID, priority); err != nil {
			return "", err
		}
		return artifact.ID, nil
	}

	content, err := a.registry.Load(ctx, artifact)
	if err != nil {
		return "", err
	}

	if _, err := a.store.AddArtifactToPackWithContent(packID, artifact, []byte(content), priority); err != nil {
		return "", err
	}
	return artifact.ID, nil
}

func runPackRemove(args []string, globals GlobalFlags) {
	if len(args) != 2 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing arguments", "Usage: ctx pack remove <name-or-id> <artifact-id>", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	pack, err := a.store.GetPack(args[0])
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}
	if err := a.store.RemoveArtifactFromPack(pack.ID, args[1]); err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(map[string]string{"status": "removed", "artifact_id": args[1]})
		return
	}
	fmt.Printf("Removed %s from %s\n", args[1], pack.Name)
}

func runPackDelete(args []string, globals GlobalFlags) {
	if len(args) != 1 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing pack name or id", "Usage: ctx pack delete <name-or-id>", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	pack, err := a.store.GetPack(args[0])
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}
	if err := a.store.DeletePack(pack.ID); err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	if globals.JSON {
		printJSON(map[string]string{"status": "deleted", "pack_id": pack.ID})
		return
	}
	fmt.Printf("Deleted pack %s\n", pack.Name)
}

func runPackApply(args []string, globals GlobalFlags) {
	if len(args) != 2 {
		ctxerrors.FatalError(ctxerrors.NewUserError("Missing arguments", "Usage: ctx pack apply <name-or-id> <manifest.yaml>", "", nil), globals.JSON)
	}

	a, err := newApp(globals)
	if err != nil {
		ctxerrors.FatalError(err, globals.JSON)
	}
	defer a.Close()

	pack, err := a.store.GetPack(args[0])
	if err != nil {
		ctxerrors.FatalError(asCLIError(err), globals.JSON)
	}

	manifestBytes, err := os.ReadFile(args[1])
	if err != nil {
		ctxerrors.FatalError(ctxerrors.NewConfigError(
			"Cannot read manifest",
			err.Error(),
			"Check that the manifest path exists and is readable",
			err,
		), globals.JSON)
	}

	manifest, err := parseManifest(manifestBytes)
	if err != nil {
		ctxerrors.FatalError(ctxerrors.NewConfigError(
			"Cannot parse manifest",
			err.Error(),
			"Check the manifest's YAML syntax against the documented schema",
			err,
		), globals.JSON)
	}

	bar := ui.NewProgressBar(len(manifest.Items), "applying manifest", globals.Quiet)
	added := make([]string, 0, len(manifest.Items))

	for _, item := range manifest.Items {
		opts := sources.Options{Recursive: item.Recursive, Exclude: item.Exclude}
		if item.MaxFiles > 0 {
			maxFiles := item.MaxFiles
			opts.MaxFiles = &maxFiles
		}

		artifactID, err := addArtifactToPack(a, pack.ID, item.URI, opts, item.Priority)
		if err != nil {
			ctxerrors.FatalError(ctxerrors.NewUserError(
				fmt.Sprintf("Failed to apply manifest item %q", item.URI),
				err.Error(),
				"",
				err,
			), globals.JSON)
		}
		added = append(added, artifactID)
		_ = bar.Add(1)
	}

	if globals.JSON {
		printJSON(map[string]any{"pack_id": pack.ID, "added": added})
		return
	}
	fmt.Printf("Applied %d item(s) to %s\n", len(added), pack.Name)
}

// --- JSON output shapes ---

type packOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Budget    int    `json:"budget_tokens"`
	CreatedAt string `json:"created_at"`
}

func packJSON(p ctxcore.Pack) packOutput {
	return packOutput{ID: p.ID, Name: p.Name, Budget: p.Policies.BudgetTokens, CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z")}
}

type itemOutput struct {
	ArtifactID string `json:"artifact_id"`
	SourceURI  string `json:"source_uri"`
	Priority   int64  `json:"priority"`
}

func itemsJSON(items []ctxcore.PackItem) []itemOutput {
	out := make([]itemOutput, 0, len(items))
	for _, item := range items {
		out = append(out, itemOutput{ArtifactID: item.Artifact.ID, SourceURI: item.Artifact.SourceURI, Priority: item.Priority})
	}
	return out
}

type packShowOutput struct {
	Pack  packOutput   `json:"pack"`
	Items []itemOutput `json:"items"`
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// asCLIError passes a *ctxerrors.CLIError through unchanged, maps known
// ctxcore error shapes to the matching CLIError kind, and otherwise wraps
// err as a user error.
func asCLIError(err error) error {
	if cli, ok := err.(*ctxerrors.CLIError); ok {
		return cli
	}

	var dbErr *ctxcore.DatabaseError
	if errors.As(err, &dbErr) {
		return ctxerrors.NewDatabaseError(err.Error(), "", "Check the ctx data directory and disk space", err)
	}

	var loadErr *ctxcore.LoadFailedError
	if errors.As(err, &loadErr) {
		return ctxerrors.NewNetworkError(err.Error(), "", "Check that the source is reachable", err)
	}

	var denyErr *ctxcore.DeniedByDenylistError
	if errors.As(err, &denyErr) {
		return ctxerrors.NewUserError(err.Error(), "", "Remove the path from the denylist or ingest it under a different name", err)
	}

	return ctxerrors.NewUserError(err.Error(), "", "", err)
}
