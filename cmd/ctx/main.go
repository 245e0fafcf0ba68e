// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the ctx CLI: a context-pack curation and
// deterministic-rendering tool.
//
// Usage:
//
//	ctx pack create <name> [--budget N]
//	ctx pack list [--json]
//	ctx pack show <name-or-id> [--json]
//	ctx pack add <name-or-id> <uri> [--priority N]
//	ctx pack remove <name-or-id> <artifact-id>
//	ctx pack delete <name-or-id>
//	ctx pack apply <name-or-id> <manifest.yaml>
//	ctx render <name-or-id> [--json] [--budget N] [-o file]
//	ctx snapshot create <name-or-id> [--label L]
//	ctx snapshot show <snapshot-id>
//	ctx snapshot list
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/vladisov/ctx/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags that apply across every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Quiet   bool
	DBPath  string
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
		dbPath      = flag.String("db", "", "Path to the ctx state database (default: ~/.ctx/state.db)")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `ctx - context pack curation and deterministic rendering

Usage:
  ctx <command> [options]

Commands:
  pack create <name> [--budget N]             Create a new pack
  pack list [--json]                          List all packs
  pack show <name-or-id> [--json]             Show a pack and its artifacts
  pack add <name-or-id> <uri> [--priority N]  Ingest a source and add it to a pack
  pack remove <name-or-id> <artifact-id>      Remove an artifact from a pack
  pack delete <name-or-id>                    Delete a pack
  pack apply <name-or-id> <manifest.yaml>     Bulk-add artifacts from a manifest
  render <name-or-id> [--json] [--budget N] [-o file]
                                               Render a pack into a payload
  snapshot create <name-or-id> [--label L]    Snapshot a pack's current render
  snapshot show <snapshot-id>                 Show a snapshot
  snapshot list [--render-hash H]              List all snapshots

Global Options:
  --json         Output in JSON format
  --no-color     Disable color output (respects NO_COLOR env var)
  -q, --quiet    Suppress non-essential output
  --db           Path to the ctx state database
  -V, --version  Show version and exit
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("ctx version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Quiet: *quiet, DBPath: *dbPath}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "pack":
		runPack(cmdArgs, globals)
	case "render":
		runRender(cmdArgs, globals)
	case "snapshot":
		runSnapshot(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
