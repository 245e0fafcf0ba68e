// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the small set of terminal formatting helpers the
// cmd/ctx commands use for human-readable (non-JSON) output.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors disables color output when noColor is set, the NO_COLOR
// environment variable is present, or stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	Bold.Println(title)
}

// SubHeader prints a dimmer, indented section title.
func SubHeader(title string) {
	fmt.Printf("  %s\n", Bold.Sprint(title))
}

// Label formats a field label for "Label: value" lines.
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText renders text in a faint style, for secondary detail.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText renders an integer count in bold, for summary lines.
func CountText(n int) string {
	return Bold.Sprintf("%d", n)
}
